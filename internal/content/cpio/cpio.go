// Package cpio writes "new ASCII" cpio archives No
// library in the pack writes this format (the one CPIO-adjacent
// reference retrieved, a FUSE archive reader, only parses an already-
// built archive), so the header encoding is hand-written directly
// against the historical newc layout (see DESIGN.md).
package cpio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const magic = "070701"

// WriteTree walks dir depth-first and writes a new-ASCII cpio archive
// of every regular file beneath it to w. Names are recorded relative
// to dir with a single leading '/' stripped
func WriteTree(w io.Writer, dir string) error {
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(filepath.ToSlash(rel), "/")
		return writeEntry(w, path, name, info)
	})
	if err != nil {
		return err
	}
	return writeTrailer(w)
}

func writeEntry(w io.Writer, path, name string, info os.FileInfo) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeHeader(w, name, uint32(info.Size()), info.ModTime().Unix(), 0x81A4, 1); err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	return pad4(w, int(info.Size()))
}

// writeHeader emits one 110-byte new-ASCII header plus the
// NUL-terminated name, padded so the header+name together land on a
// 4-byte boundary.
func writeHeader(w io.Writer, name string, size uint32, mtime int64, mode, nlink uint32) error {
	const (
		ino       = 0
		uid       = 0
		gid       = 0
		devmajor  = 0
		devminor  = 0
		rdevmajor = 0
		rdevminor = 0
	)
	namesize := len(name) + 1

	hdr := fmt.Sprintf("%s%08X%08X%08X%08X%08X%08X%08X%08X%08X%08X%08X%08X%s",
		magic, ino, mode, uid, gid, nlink, mtime, size,
		devmajor, devminor, rdevmajor, rdevminor, namesize, "00000000")

	if _, err := io.WriteString(w, hdr); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	return pad4(w, len(hdr)+namesize)
}

// writeTrailer emits the "TRAILER!!!" end-of-archive record with an
// all-zero numeric header, matching the historical newc trailer
// convention (the record is recognized by name, never unpacked).
func writeTrailer(w io.Writer) error {
	const name = "TRAILER!!!"
	return writeHeader(w, name, 0, 0, 0, 0)
}

// pad4 writes NUL bytes so that n bytes already written lands the
// stream position on the next 4-byte boundary.
func pad4(w io.Writer, n int) error {
	if rem := n % 4; rem != 0 {
		pad := make([]byte, 4-rem)
		if _, err := w.Write(pad); err != nil {
			return err
		}
	}
	return nil
}
