package statuspage

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRenderIncludesHostnameAndListeners(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Info{
		Hostname:  "host.example.org",
		Uptime:    90 * time.Second,
		Listeners: []string{"gemini/1965", "gopher/70"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "# Status: host.example.org") {
		t.Fatalf("missing hostname header: %q", out)
	}
	if !strings.Contains(out, "* gemini/1965\r\n") || !strings.Contains(out, "* gopher/70\r\n") {
		t.Fatalf("missing listener lines: %q", out)
	}
}
