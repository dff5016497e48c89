// Package response implements the response writer:
// single send_header operation, one shape per protocol. The per-protocol
// branch-then-fmt.Fprintf shape mirrors how SimpleRelay's muxer formats
// one entry differently per configured output without touching the
// caller's control flow.
package response

import (
	"fmt"
	"io"

	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/status"
)

// SendHeader writes the protocol-appropriate status line/header for st
// to w and returns the protocol's numeric status code, for the access
// log. Gopher has no numeric codes; for it the Gemini code is returned.
func SendHeader(w io.Writer, proto request.Proto, st status.Status, text, fqdn string) (int, error) {
	switch proto {
	case request.Gemini, request.Titan, request.Spartan:
		code := st.Gemini()
		if proto == request.Spartan {
			code = st.Spartan()
		}
		_, err := fmt.Fprintf(w, "%d %s\r\n", code, text)
		return code, err

	case request.HTTP:
		code := st.HTTP()
		switch {
		case st == status.OK:
			_, err := fmt.Fprintf(w, "HTTP/1.0 200 OK\r\nContent-Type: %s; encoding=utf8\r\nConnection: close\r\n\r\n", text)
			return code, err
		case st.IsRedirect():
			_, err := fmt.Fprintf(w, "HTTP/1.0 301 Moved\r\nLocation: %s\r\nConnection: close\r\n\r\n", text)
			return code, err
		default:
			_, err := fmt.Fprintf(w, "HTTP/1.0 %d %s\r\nConnection: close\r\n\r\n", code, text)
			return code, err
		}

	case request.Gopher:
		if st.IsRedirect() {
			_, err := fmt.Fprintf(w, "1Redirect to %s\t%s\t%s\t70\r\n", text, text, fqdn)
			return st.Gemini(), err
		}
		if st != status.OK {
			_, err := fmt.Fprintf(w, "i%s\t\t%s\t70\r\n", text, fqdn)
			return st.Gemini(), err
		}
		return st.Gemini(), nil // OK: no header, body carries type prefixes
	}

	return st.Gemini(), nil
}
