// Package tinylog implements the tinylog inserter: a
// BEFORE/INSERT/AFTER state machine over the line reader, followed by
// an archive-then-atomic-replace write. The line-by-line copy loop
// drains its entry stream to completion by checking its own EOF
// sentinel rather than a bare io.EOF, mirroring internal/lineio's
// sentinel-driven ReadLineFile.
package tinylog

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/cstroie/kore/internal/clock"
	"github.com/cstroie/kore/internal/content/archive"
	"github.com/cstroie/kore/internal/lineio"
)

// copyBufSize bounds a single tinylog.gmi line read through
// lineio.ReadLineFile; lines longer than this are copied verbatim up
// to the limit rather than rejected, since a tinylog entry is only
// ever appended by Insert itself in small, bounded chunks.
const copyBufSize = 4096

type insertState int

const (
	before insertState = iota
	insert
	after
)

// Insert appends entry into <vhostRoot>/tinylog.gmi immediately before
// the first "## " header line (or at EOF if none exists), archives the
// previous contents, and atomically replaces the file.
// archiveRoot is the server's top-level root under which /archive/...
// lives.
func Insert(archiveRoot, vhostRoot, entry string, now time.Time) error {
	target := vhostRoot + "/tinylog.gmi"
	tmpPath := archiveRoot + "/~tinylog.tmp"

	// The original single-threaded relay never had two requests racing
	// on the same file; a goroutine per connection does, so the
	// read-merge-archive-replace sequence below needs its own lock.
	fl := flock.New(target + ".lock")
	if err := fl.Lock(); err != nil {
		return err
	}
	defer fl.Unlock()

	if err := writeMerged(target, tmpPath, entry, now); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := archive.Snapshot(archiveRoot, target, now); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return archive.ReplaceWithTemp(target, tmpPath)
}

func writeMerged(target, tmpPath, entry string, now time.Time) error {
	src, err := os.Open(target)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if src != nil {
		defer src.Close()
	}

	dst, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	header := "## " + clock.TinylogHeader(now) + "\r\n"

	state := before
	if src == nil {
		_, err := dst.WriteString(header + entry + "\r\n\r\n")
		return err
	}

	r := bufio.NewReader(src)
	buf := make([]byte, copyBufSize)
	for {
		n, rerr := lineio.ReadLineFile(r, buf, false)
		if rerr != nil {
			return rerr
		}
		if n == lineio.EOF {
			break
		}
		end := n
		if n == lineio.Overflow {
			end = len(buf) - 1
		}
		line := string(buf[:end])

		switch state {
		case before:
			if strings.HasPrefix(line, "## ") {
				if _, err := dst.WriteString(header + entry + "\r\n\r\n"); err != nil {
					return err
				}
				state = insert
			}
			if _, err := dst.WriteString(line + "\r\n"); err != nil {
				return err
			}
			if state == insert {
				state = after
			}
		case insert, after:
			if _, err := dst.WriteString(line + "\r\n"); err != nil {
				return err
			}
		}
	}
	if state == before {
		if _, err := dst.WriteString(header + entry + "\r\n\r\n"); err != nil {
			return err
		}
	}
	return dst.Close()
}
