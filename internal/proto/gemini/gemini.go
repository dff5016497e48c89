// Package gemini implements the Gemini and Titan request-line
// parser. A parsed-URL value is built explicitly instead
// of mutating the request buffer in place with the original's
// "shift host left two bytes" trick — offsets are simple string ops here, not
// an optimization a Go server needs to make.
package gemini

import (
	"errors"
	"strings"

	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/uri"
)

var (
	ErrUnsupportedScheme = errors.New("gemini: unsupported scheme")
	ErrEmptyHost         = errors.New("gemini: empty host")
)

// Parse parses a single Gemini or Titan request line (without its
// trailing CRLF) into a canonical Request. fqdn is the server's
// configured hostname: a Titan request with no host (e.g.
// "titan:///notes/x.gmi;...") is filled in with it, since Titan
// uploads are only ever addressed at this server. A plain Gemini
// request with no host ("gemini:///path") has no such fallback and is
// rejected outright.
func Parse(line string, authenticated bool, fqdn string) (request.Request, error) {
	var proto request.Proto
	var rest string

	switch {
	case strings.HasPrefix(line, "gemini://"):
		proto = request.Gemini
		rest = line[len("gemini://"):]
	case strings.HasPrefix(line, "titan://"):
		proto = request.Titan
		rest = line[len("titan://"):]
	default:
		return request.Request{}, ErrUnsupportedScheme
	}

	host, path, query := splitAuthorityPathQuery(rest)
	host = strings.ToLower(stripPort(host))
	path = uri.FoldPath(path)

	if host == "" {
		if proto != request.Titan {
			return request.Request{}, ErrEmptyHost
		}
		host = fqdn
	}

	req := request.Request{
		Proto:         proto,
		Host:          host,
		Path:          path,
		Query:         query,
		Authenticated: authenticated,
	}

	if proto == request.Titan {
		req.Path, req.Query = splitTitanPathParams(path, query)
	}

	return req, nil
}

// splitAuthorityPathQuery splits "host[:port]/path?query" (path
// synthesized as "/" when absent).
func splitAuthorityPathQuery(rest string) (host, path, query string) {
	slash := strings.IndexByte(rest, '/')
	q := strings.IndexByte(rest, '?')

	authEnd := len(rest)
	if slash >= 0 {
		authEnd = slash
	}
	if q >= 0 && q < authEnd {
		authEnd = q
	}
	host = rest[:authEnd]

	body := rest[authEnd:]
	if qi := strings.IndexByte(body, '?'); qi >= 0 {
		path, query = body[:qi], uri.PercentDecode(body[qi+1:])
	} else {
		path = body
	}
	if path == "" {
		path = "/"
	}
	return host, path, query
}

func stripPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// splitTitanPathParams handles Titan's path-embedded ';'-separated
// parameter list, e.g. "/notes/x.gmi;mime=text/gemini;size=5;token=x".
// The true path is everything before the first ';'; the remainder
// (plus any '?' query already split out) becomes the param string
// Titan's receiver parses with ';' as separator.
func splitTitanPathParams(path, query string) (truePath, params string) {
	if i := strings.IndexByte(path, ';'); i >= 0 {
		truePath = path[:i]
		params = path[i+1:]
		if query != "" {
			params += ";" + query
		}
		return truePath, params
	}
	return path, query
}
