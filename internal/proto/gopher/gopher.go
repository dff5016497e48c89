// Package gopher implements the C8 Gopher request-line parser (spec
// §4.12): a single selector line, optionally with a tab-separated
// query, no host and no percent-decoding.
package gopher

import (
	"strings"

	"github.com/cstroie/kore/internal/request"
)

// ParseLine parses a Gopher selector line (without its trailing CRLF).
// An empty line means the root selector.
func ParseLine(line string) request.Request {
	selector := line
	query := ""
	if tab := strings.IndexByte(line, '\t'); tab >= 0 {
		selector = line[:tab]
		query = line[tab+1:]
	}
	if selector == "" {
		selector = "/"
	}
	if !strings.HasPrefix(selector, "/") {
		selector = "/" + selector
	}
	return request.Request{
		Proto: request.Gopher,
		Path:  selector,
		Query: query,
	}
}
