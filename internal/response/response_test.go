package response

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/status"
)

func TestSendHeaderGemini(t *testing.T) {
	var buf bytes.Buffer
	code, err := SendHeader(&buf, request.Gemini, status.OK, "text/gemini", "fqdn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 20 || buf.String() != "20 text/gemini\r\n" {
		t.Fatalf("unexpected output: %d %q", code, buf.String())
	}
}

func TestSendHeaderSpartanCode(t *testing.T) {
	var buf bytes.Buffer
	code, _ := SendHeader(&buf, request.Spartan, status.NOT_FOUND, "not found", "fqdn")
	if code != 4 {
		t.Fatalf("expected spartan code 4, got %d", code)
	}
}

func TestSendHeaderHTTPVariants(t *testing.T) {
	var buf bytes.Buffer
	SendHeader(&buf, request.HTTP, status.OK, "text/plain", "fqdn")
	if !strings.HasPrefix(buf.String(), "HTTP/1.0 200 OK\r\n") {
		t.Fatalf("unexpected OK header: %q", buf.String())
	}

	buf.Reset()
	SendHeader(&buf, request.HTTP, status.MOVED, "/new", "fqdn")
	if !strings.Contains(buf.String(), "Location: /new\r\n") {
		t.Fatalf("unexpected moved header: %q", buf.String())
	}

	buf.Reset()
	SendHeader(&buf, request.HTTP, status.NOT_FOUND, "gone", "fqdn")
	if !strings.HasPrefix(buf.String(), "HTTP/1.0 404 gone\r\n") {
		t.Fatalf("unexpected error header: %q", buf.String())
	}
}

func TestSendHeaderGopherOKIsSilent(t *testing.T) {
	var buf bytes.Buffer
	SendHeader(&buf, request.Gopher, status.OK, "", "fqdn")
	if buf.Len() != 0 {
		t.Fatalf("expected no header for gopher OK, got %q", buf.String())
	}
}

func TestSendHeaderGopherError(t *testing.T) {
	var buf bytes.Buffer
	SendHeader(&buf, request.Gopher, status.NOT_FOUND, "nope", "fqdn.example.org")
	if !strings.HasPrefix(buf.String(), "inope\t\tfqdn.example.org\t70\r\n") {
		t.Fatalf("unexpected gopher error line: %q", buf.String())
	}
}
