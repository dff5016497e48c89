// Package statuspage renders the Gemini "/status" virtual endpoint: a
// short, server-generated Gemini document summarizing process uptime
// and listener state, in the same compact report style as a
// health-check output.
package statuspage

import (
	"fmt"
	"io"
	"time"
)

// Info carries the fields shown on the status page.
type Info struct {
	Hostname  string
	Uptime    time.Duration
	Listeners []string // e.g. "gemini/1965", "spartan/300"
}

// Render writes the Gemini status document for info to w.
func Render(w io.Writer, info Info) error {
	if _, err := fmt.Fprintf(w, "# Status: %s\r\n\r\n", info.Hostname); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Uptime: %s\r\n\r\n", info.Uptime.Round(time.Second)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "## Listeners\r\n\r\n"); err != nil {
		return err
	}
	for _, l := range info.Listeners {
		if _, err := fmt.Fprintf(w, "* %s\r\n", l); err != nil {
			return err
		}
	}
	return nil
}
