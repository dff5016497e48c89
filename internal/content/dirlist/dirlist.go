// Package dirlist implements the directory-listing branch of the
// content dispatcher: a sorted, hidden-entry-filtered
// enumeration emitted in the per-protocol shape.
package dirlist

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cstroie/kore/internal/request"
)

// List writes the directory listing for dir to w. urlPath is the
// request path the listing is served under (used to build links);
// fqdn is used by the Gopher shape; gopherChar looks up a file's Gopher
// item type by extension.
func List(w io.Writer, proto request.Proto, dir, urlPath, fqdn string, gopherChar func(ext string) byte) error {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(dirents))
	isDir := map[string]bool{}
	for _, d := range dirents {
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
		isDir[name] = d.IsDir()
	}
	sort.Strings(names)

	for _, name := range names {
		display := name
		if isDir[name] {
			display = name + "/"
		}
		if proto == request.Gopher {
			typ := byte('1')
			ext := extOf(name)
			if !isDir[name] {
				typ = gopherChar(ext)
			}
			if _, err := io.WriteString(w, string(typ)+display+"\t"+urlPath+"/"+name+"\t"+fqdn+"\t70\r\n"); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "=> "+urlPath+"/"+name+"\t"+display+"\r\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func extOf(name string) string {
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		return name[dot+1:]
	}
	return ""
}
