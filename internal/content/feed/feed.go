// Package feed implements the Gemini feed generator: an optional
// verbatim header/footer wrap around a title-heuristic scan of a
// directory's entries. The "read up to N lines, find the first
// title-shaped line" heuristic follows the same best-effort line-scan
// shape used to sniff a log format from a handful of leading lines
// before committing to a parser.
package feed

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

const titleScanLines = 5

// Entry is one surviving directory entry plus its derived title and
// modification date.
type Entry struct {
	Name  string
	Title string
	Date  time.Time
	IsDir bool
}

// Generate writes the Gemini feed for directory dir to w.
// urlPath is the request path under which dir is served (used to build
// entry links); fqdn is used for the Gopher shape.
func Generate(w io.Writer, dir, urlPath, fqdn string, gopher bool) error {
	if hdr, err := os.Open(dir + "/feed-hdr.gmi"); err == nil {
		defer hdr.Close()
		if _, err := io.Copy(w, hdr); err != nil {
			return err
		}
	} else {
		if err := writeTitle(w, dir); err != nil {
			return err
		}
	}

	entries, err := collectEntries(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, e := range entries {
		if gopher {
			if _, err := io.WriteString(w, e.Date.Format("2006-01-02")+" "+e.Title+"\t"+urlPath+"/"+e.Name+"\t"+fqdn+"\t70\r\n"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "=> "+urlPath+"/"+e.Name+"\t"+e.Date.Format("2006-01-02")+" "+e.Title+"\r\n"); err != nil {
				return err
			}
		}
	}

	if ftr, err := os.Open(dir + "/feed-ftr.gmi"); err == nil {
		defer ftr.Close()
		if _, err := io.Copy(w, ftr); err != nil {
			return err
		}
	}
	return nil
}

func writeTitle(w io.Writer, dir string) error {
	title, ok := scanTitle(dir + "/index.gmi")
	if !ok {
		title = "No title"
	}
	_, err := io.WriteString(w, "# "+title+"\r\n\r\n")
	return err
}

// scanTitle reads up to the first titleScanLines lines of path and
// returns the first '#'-prefixed line, with the leading '#' and
// whitespace stripped.
func scanTitle(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for i := 0; i < titleScanLines && sc.Scan(); i++ {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# \t")), true
		}
	}
	return "", false
}

func collectEntries(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if matchesSkip(name) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		title, ok := scanTitle(dir + "/" + name)
		if !ok {
			title = name
		}
		entries = append(entries, Entry{Name: name, Title: title, Date: info.ModTime()})
	}
	return entries, nil
}

func matchesSkip(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range []string{"index.", "gopher.", "feed"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
