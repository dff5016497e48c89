// Package archive implements the archive-then-replace sequence shared
// by the tinylog inserter and the Titan receiver. Atomic
// replacement is grounded on ingest/config's updateConfigFile, which
// writes to a temp file and swaps it into place with go-write's
// CloseAtomicallyReplace instead of a bare os.Rename.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-write"

	"github.com/cstroie/kore/internal/clock"
)

// Snapshot copies the current contents of target into
// <root>/archive/<target-relative-to-root>/<timestamp>, where timestamp is
// now formatted as YYYYMMDD-HHMMSS. target must be an absolute path
// rooted at root. A missing target is not an error — there is nothing
// to archive yet.
func Snapshot(root, target string, now time.Time) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("archive: %s is not under %s: %w", target, root, err)
	}

	src, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	destDir := filepath.Join(root, "archive", rel)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	destPath := filepath.Join(destDir, clock.ArchiveStamp(now))

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}

// ReplaceWithTemp atomically replaces target's contents with tmp's,
// using go-write's CloseAtomicallyReplace (temp-file-then-rename under
// the hood) rather than a bare os.Rename, the same pattern used for
// config file updates.
func ReplaceWithTemp(target, tmpPath string) error {
	f, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := write.TempFile(filepath.Dir(target), target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := w.CloseAtomicallyReplace(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Remove(tmpPath)
}
