// Package dispatch implements the content dispatcher:
// priority-ordered branch selection over a resolved path, plus the
// virtual-endpoint table. It is the seam where the path resolver, the
// content generators, and the response writer meet, playing the same
// role SimpleRelay's acceptor plays in picking a reader/handler pair
// once a connection's listener config is known.
package dispatch

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/cstroie/kore/internal/clock"
	"github.com/cstroie/kore/internal/config"
	"github.com/cstroie/kore/internal/content/cpio"
	"github.com/cstroie/kore/internal/content/dirlist"
	"github.com/cstroie/kore/internal/content/feed"
	"github.com/cstroie/kore/internal/content/fortune"
	"github.com/cstroie/kore/internal/content/statuspage"
	"github.com/cstroie/kore/internal/content/tinylog"
	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/resolve"
	"github.com/cstroie/kore/internal/status"
)

// Result is the outcome of dispatching a single request: a status, an
// optional header text (MIME type, redirect target, or error message),
// and an optional body writer invoked only when Status allows a body.
type Result struct {
	Status   status.Status
	Text     string
	WriteBody func(w io.Writer) error
}

// vhostRoot resolves fspath's vhost root from a Resolution's VhostEnd slice.
func vhostRoot(res resolve.Resolution) string {
	return res.FSPath[:res.VhostEnd]
}

// parentDir strips the basename off fspath, giving the directory the
// resolved file lives in (as opposed to the vhost root, which only
// coincides with it for a top-level request).
func parentDir(fspath string) string {
	if i := strings.LastIndexByte(fspath, '/'); i >= 0 {
		return fspath[:i]
	}
	return fspath
}

// Dispatch selects and runs one priority-ordered branch for req, given
// its resolution res. serverRoot is the top-level content root under
// which vhost subtrees, /archive, and scratch files live; cfg
// supplies the MIME table, the FQDN and the short host name; randIndex
// picks a fortune entry.
func Dispatch(req request.Request, res resolve.Resolution, cfg *config.Config, serverRoot, fortunesDir string, randIndex func(n int) int, now time.Time, uptime time.Duration, listeners []string) Result {
	if res.Moved {
		return Result{Status: status.MOVED, Text: res.MovedPath}
	}

	if fileExists(res.FSPath) && req.Query != "nofile" {
		return serveFile(req, res, cfg)
	}

	if res.DirEnd > 0 && !fileExists(res.FSPath) {
		root := vhostRoot(res)
		urlPath := strings.TrimSuffix(req.Path, "/")
		dirPath := root + req.Path
		return Result{
			Status: status.OK,
			Text:   "text/gemini",
			WriteBody: func(w io.Writer) error {
				return dirlist.List(w, req.Proto, dirPath, urlPath, cfg.FQDN, func(ext string) byte {
					_, ch := cfg.MIME.Lookup(ext)
					return ch
				})
			},
		}
	}

	if res := dispatchVirtual(req, res, cfg, serverRoot, fortunesDir, randIndex, now, uptime, listeners); res != nil {
		return *res
	}

	return Result{Status: status.NOT_FOUND, Text: "Not found"}
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func serveFile(req request.Request, res resolve.Resolution, cfg *config.Config) Result {
	mime, _ := cfg.MIME.Lookup(res.Ext)
	text := mime
	if req.Proto == request.Gopher {
		text = ""
	}
	return Result{
		Status: status.OK,
		Text:   text,
		WriteBody: func(w io.Writer) error {
			f, err := os.Open(res.FSPath)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(w, f)
			return err
		},
	}
}

func dispatchVirtual(req request.Request, res resolve.Resolution, cfg *config.Config, serverRoot, fortunesDir string, randIndex func(n int) int, now time.Time, uptime time.Duration, listeners []string) *Result {
	root := vhostRoot(res)

	switch {
	case req.Path == "/status" && req.Proto == request.Gemini:
		return &Result{Status: status.OK, Text: "text/gemini", WriteBody: func(w io.Writer) error {
			return statuspage.Render(w, statuspage.Info{Hostname: cfg.FQDN, Uptime: uptime, Listeners: listeners})
		}}

	case strings.HasPrefix(req.Path, "/fortunes"):
		name := strings.TrimPrefix(req.Path, "/fortunes")
		name = strings.TrimPrefix(name, "/")
		if name == "" {
			name = "fortunes"
		}
		lines, err := fortune.Pick(fortunesDir, name, randIndex(1<<30))
		if err != nil {
			return &Result{Status: status.NOT_FOUND, Text: "No fortunes"}
		}
		return &Result{Status: status.OK, Text: "text/gemini", WriteBody: func(w io.Writer) error {
			_, err := io.WriteString(w, fortune.WrapGemini(lines))
			return err
		}}

	case req.Path == "/input" && req.Proto == request.Gemini:
		if !req.Authenticated {
			return &Result{Status: status.AUTH_REQUIRED, Text: "Client identification is required."}
		}
		return &Result{Status: status.PASSWORD, Text: "Enter password:"}

	case req.Path == "/admin/create-directory" && req.Proto == request.Gemini:
		if !req.Authenticated {
			return &Result{Status: status.AUTH_REQUIRED, Text: "Client identification is required."}
		}
		if req.Query == "" {
			return &Result{Status: status.INPUT, Text: "Directory (absolute path):"}
		}
		if err := os.MkdirAll(root+"/"+req.Query, 0755); err != nil {
			return &Result{Status: status.SERVER_ERROR, Text: "Could not create directory"}
		}
		return &Result{Status: status.REDIR, Text: req.Query}

	case req.Path == "/cpio":
		if !req.Authenticated {
			return &Result{Status: status.AUTH_REQUIRED, Text: "Client identification is required."}
		}
		target := "/" + cfg.Host + "-" + clock.ArchiveStamp(now) + ".cpio"
		return &Result{Status: status.REDIR, Text: target}

	case strings.HasSuffix(res.Basename, ".cpio"):
		if !req.Authenticated {
			return &Result{Status: status.AUTH_REQUIRED, Text: "Client identification is required."}
		}
		dumpDir := parentDir(res.FSPath)
		return &Result{Status: status.OK, Text: "application/x-cpio", WriteBody: func(w io.Writer) error {
			return cpio.WriteTree(w, dumpDir)
		}}

	case res.Basename == "feed.gmi":
		if !req.Authenticated {
			return &Result{Status: status.AUTH_REQUIRED, Text: "Client identification is required."}
		}
		dir := root + strings.TrimSuffix(req.Path, "feed.gmi")
		urlPath := strings.TrimSuffix(strings.TrimSuffix(req.Path, "feed.gmi"), "/")
		return &Result{Status: status.OK, Text: "text/gemini", WriteBody: func(w io.Writer) error {
			return feed.Generate(w, dir, urlPath, cfg.FQDN, req.Proto == request.Gopher)
		}}

	case req.Path == "/tinylog/new" && req.Proto == request.Gemini:
		if !req.Authenticated {
			return &Result{Status: status.AUTH_REQUIRED, Text: "Client identification is required."}
		}
		if req.Query == "" {
			return &Result{Status: status.INPUT, Text: "Entry text:"}
		}
		if err := tinylog.Insert(serverRoot, root, req.Query, now); err != nil {
			return &Result{Status: status.SERVER_ERROR, Text: "Could not append entry"}
		}
		return &Result{Status: status.REDIR, Text: "/tinylog.gmi"}
	}
	return nil
}
