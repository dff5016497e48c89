// Package spartan implements the Spartan request-line parser:
// "HOST PATH LEN\r\n" followed by exactly LEN raw query bytes.
package spartan

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/uri"
)

var (
	ErrMalformed       = errors.New("spartan: malformed request line")
	ErrBufferOverflow  = errors.New("spartan: content-length exceeds buffer capacity")
)

// ParseLine parses the "HOST PATH LEN" request line (without its
// trailing CRLF). remainingCapacity is buffer_capacity minus the
// bytes already consumed by the request line, used for the length
// overflow check.
func ParseLine(line string, remainingCapacity int) (request.Request, int, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return request.Request{}, 0, ErrMalformed
	}
	host, path, lenStr := parts[0], parts[1], parts[2]

	n, err := strconv.Atoi(lenStr)
	if err != nil || n < 0 {
		return request.Request{}, 0, ErrMalformed
	}
	if n > remainingCapacity-1 {
		return request.Request{}, 0, ErrBufferOverflow
	}

	if path == "" {
		path = "/"
	}

	req := request.Request{
		Proto: request.Spartan,
		Host:  strings.ToLower(host),
		Path:  uri.FoldPath(path),
	}
	return req, n, nil
}

// AttachBody sets the already-read query body bytes (no percent-decode
//) onto req.
func AttachBody(req request.Request, body string) request.Request {
	req.Query = body
	return req
}
