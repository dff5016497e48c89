// Package http implements the HTTP/1.0 request-line parser:
// "METHOD SP PATH SP PROTO\r\n", with the rest of the request
// drained and discarded (no Host header parsing — fqdn is always the
// virtual host for this protocol).
package http

import (
	"bufio"
	"errors"
	"strings"

	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/uri"
)

var ErrMalformed = errors.New("http: malformed request line")

// ParseLine parses the HTTP request line (without its trailing CRLF).
func ParseLine(line string) (request.Request, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return request.Request{}, ErrMalformed
	}
	target := parts[1]

	path := target
	query := ""
	if qi := strings.IndexByte(target, '?'); qi >= 0 {
		path = target[:qi]
		query = uri.PercentDecode(target[qi+1:])
	}
	if path == "" {
		path = "/"
	}

	return request.Request{
		Proto: request.HTTP,
		Path:  uri.FoldPath(path),
		Query: query,
	}, nil
}

// DrainHeaders reads and discards the remaining header lines of an
// HTTP/1.0 request up to the terminating blank line
// "drain and discard the rest" instruction.
func DrainHeaders(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}
