package server

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cstroie/kore/internal/config"
	"github.com/cstroie/kore/internal/log"
	"github.com/cstroie/kore/internal/mimetable"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	host := filepath.Join(root, "host")
	if err := os.MkdirAll(host, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(host, "hello.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{FQDN: "host", Host: "host", MIME: mimetable.New([]mimetable.Entry{
		{Ext: "txt", MIME: "text/plain", GopherChar: '0'},
	})}
	s := New(cfg, root, filepath.Join(root, "fortunes"), log.NewDiscardLogger(), func(int) int { return 0 })
	return s, root
}

func TestHandleHTTPServesFile(t *testing.T) {
	s, _ := newTestServer(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		s.handleHTTP(server)
		close(done)
	}()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Write([]byte("GET /hello.txt HTTP/1.0\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReader(client)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if line != "HTTP/1.0 200 OK\r\n" {
		t.Fatalf("unexpected status line: %q", line)
	}
	// net.Pipe is unbuffered: the handler cannot return until the rest of
	// the header and the body have been read.
	wantRest := "Content-Type: text/plain; encoding=utf8\r\nConnection: close\r\n\r\nhi"
	rest := make([]byte, len(wantRest))
	if _, err := io.ReadFull(r, rest); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(rest) != wantRest {
		t.Fatalf("unexpected header/body: %q", rest)
	}
	<-done
}

func TestHandleGeminiNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		s.handleGemini(server, false)
		close(done)
	}()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Write([]byte("gemini://host/missing.gmi\r\n")); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReader(client)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if line != "51 Not found\r\n" {
		t.Fatalf("unexpected status line: %q", line)
	}
	<-done
}
