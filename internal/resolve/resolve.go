// Package resolve implements the path resolver:
// vhost-fallback, path-safety, and directory/default-index algorithm.
// It is grounded on the same "reject early, walk once" shape SimpleRelay
// uses when validating a connection's advertised tag before it ever
// touches the ingest muxer.
package resolve

import (
	"os"
	"strings"

	"github.com/cstroie/kore/internal/request"
)

// Resolution is the outcome of resolving a request against the
// filesystem. VhostEnd and DirEnd are byte offsets into FSPath, letting
// generators climb back to a safe root without reparsing.
type Resolution struct {
	FSPath   string
	VhostEnd int
	DirEnd   int // 0 if FSPath does not name a directory
	Basename string
	Ext      string

	// Moved is set when the resolver short-circuits with a MOVED
	// response (a directory requested without a trailing slash).
	Moved     bool
	MovedPath string
}

// DefaultIndex returns the protocol-specific synthesized index name.
func DefaultIndex(p request.Proto) string {
	if p == request.Gopher {
		return "gopher.map"
	}
	return "index.gmi"
}

// IsUnsafe reports whether requestPath contains a path-traversal
// sequence.
func IsUnsafe(requestPath string) bool {
	return strings.Contains(requestPath, "..") ||
		strings.Contains(requestPath, "/./") ||
		strings.Contains(requestPath, "//")
}

// Resolve runs the algorithm. fqdn is the server's configured
// hostname; statDir is injected so tests can fake the filesystem. root
// is the server's content root. VhostEnd/DirEnd
// offsets are relative to FSPath including this root prefix.
func Resolve(proto request.Proto, requestHost, requestPath, fqdn, root string, statDir func(string) bool) (Resolution, error) {
	var res Resolution

	if IsUnsafe(requestPath) {
		return res, errUnsafe
	}

	vhost := fqdn
	if requestHost != "" {
		if dot := strings.IndexByte(requestHost, '.'); dot >= 0 && strings.EqualFold(requestHost[dot:], ".local") {
			vhost = requestHost[:dot]
		} else {
			vhost = requestHost
		}
	}

	fspath := root + "/" + vhost
	if !statDir(fspath) {
		vhost = fqdn
		fspath = root + "/" + vhost
	}
	res.VhostEnd = len(fspath)

	if !strings.HasPrefix(requestPath, "/") {
		fspath += "/"
	}
	fspath += requestPath

	if statDir(fspath) {
		if !strings.HasSuffix(requestPath, "/") {
			res.Moved = true
			res.MovedPath = requestPath + "/"
			return res, nil
		}
		res.DirEnd = len(fspath)
		fspath += DefaultIndex(proto)
	}

	res.FSPath = fspath
	res.Basename, res.Ext = splitBasenameExt(fspath)
	return res, nil
}

// StatIsDir is the production statDir implementation: true if path
// names an existing directory.
func StatIsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func splitBasenameExt(fspath string) (base, ext string) {
	slash := strings.LastIndexByte(fspath, '/')
	base = fspath[slash+1:]
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		ext = base[dot+1:]
	}
	return base, ext
}

type resolveError string

func (e resolveError) Error() string { return string(e) }

const errUnsafe = resolveError("resolve: unsafe path")
