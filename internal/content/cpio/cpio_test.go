package cpio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTreeProducesHeaderMagicAndTrailer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("deep"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteTree(&buf, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Count(out, magic) != 3 { // hello.txt + sub/nested.txt + trailer
		t.Fatalf("expected 3 headers, got %d in %q", strings.Count(out, magic), out)
	}
	if !strings.Contains(out, "hello.txt") {
		t.Fatalf("expected name in archive")
	}
	if !strings.Contains(out, "hi") {
		t.Fatalf("expected body in archive")
	}
	if !strings.Contains(out, "TRAILER!!!") {
		t.Fatalf("expected trailer record")
	}
}

func TestWriteTreeStripsLeadingSlashFromNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteTree(&buf, dir); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "/a.txt") {
		t.Fatalf("expected no leading slash in recorded name")
	}
}
