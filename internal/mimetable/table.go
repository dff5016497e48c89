// Package mimetable implements the ordered extension -> (MIME, Gopher
// item char) lookup: an ordered, first-match, config-driven dispatch
// table in the same style as SimpleRelay's config.go
// translateBindType/translateReaderType.
package mimetable

import "strings"

// DefaultMIME and DefaultGopherChar are returned when nothing in the
// table matches.
const (
	DefaultMIME       = "application/octet-stream"
	DefaultGopherChar = '9'
)

// Entry is one configured (ext, mime, gopherChar) record.
type Entry struct {
	Ext        string
	MIME       string
	GopherChar byte
}

// Table is the ordered sequence of configured entries; first match wins.
type Table struct {
	entries []Entry
}

// New builds a Table from configuration-ordered entries.
func New(entries []Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Lookup compares the first three characters of ext against each entry's
// extension in configured order and returns the first hit. ext may carry
// a leading dot; it is ignored for comparison purposes as the table is
// matched on the prefix characters that follow it.
func (t *Table) Lookup(ext string) (mime string, gopherChar byte) {
	ext = strings.TrimPrefix(ext, ".")
	key := prefix3(ext)
	if key != "" {
		for _, e := range t.entries {
			if prefix3(strings.TrimPrefix(e.Ext, ".")) == key {
				return e.MIME, e.GopherChar
			}
		}
	}
	return DefaultMIME, DefaultGopherChar
}

func prefix3(s string) string {
	s = strings.ToLower(s)
	if len(s) > 3 {
		return s[:3]
	}
	return s
}
