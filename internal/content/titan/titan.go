// Package titan implements the Titan upload receiver:
// token/size validation, a bounded read into a scratch file, then the
// shared archive-then-rename write sequence. Grounded on the same
// validate-then-commit shape as the tinylog inserter, with size
// bookkeeping modeled on SimpleRelay's fixed-length frame readers.
package titan

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cstroie/kore/internal/content/archive"
)

// Params is a parsed Titan query.
type Params struct {
	MIME  string
	Token string
	Size  int64
}

var (
	ErrInvalidToken    = errors.New("Invalid token")
	ErrInvalidSize     = errors.New("Invalid payload size")
	ErrInsufficientBuf = errors.New("Insufficient buffer")
	ErrReadPayload     = errors.New("Error reading payload")
)

// ParseQuery parses a ';'-separated key=value Titan query string into
// Params, recognizing only mime, token, size.
func ParseQuery(q string) (Params, error) {
	var p Params
	if q == "" {
		return p, ErrInvalidSize
	}
	for _, kv := range strings.Split(q, ";") {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		key, val := kv[:idx], kv[idx+1:]
		switch key {
		case "mime":
			p.MIME = val
		case "token":
			p.Token = val
		case "size":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return p, ErrInvalidSize
			}
			p.Size = n
		}
	}
	return p, nil
}

// ValidateToken checks Params.Token against the configured token using
// a prefix compare over the configured token's length.
// An empty configuredToken means no token is required.
func ValidateToken(p Params, configuredToken string) error {
	if configuredToken == "" {
		return nil
	}
	if len(p.Token) < len(configuredToken) || p.Token[:len(configuredToken)] != configuredToken {
		return ErrInvalidToken
	}
	return nil
}

// Receive reads exactly size bytes from r into a scratch file, then
// archives and atomically replaces dest with it. Any payload bytes the
// caller has already buffered past the request line must be readable
// from r. bufferCapacity bounds how large a declared size this server
// will accept.
func Receive(r io.Reader, dest, archiveRoot, scratchPath string, size int64, bufferCapacity int, now time.Time) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	if size > int64(bufferCapacity) {
		return ErrInsufficientBuf
	}

	f, err := os.Create(scratchPath)
	if err != nil {
		return err
	}

	if _, err := io.CopyN(f, r, size); err != nil {
		f.Close()
		os.Remove(scratchPath)
		return ErrReadPayload
	}
	if err := f.Close(); err != nil {
		os.Remove(scratchPath)
		return ErrReadPayload
	}

	if err := archive.Snapshot(archiveRoot, dest, now); err != nil {
		os.Remove(scratchPath)
		return err
	}
	return archive.ReplaceWithTemp(dest, scratchPath)
}
