package feed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateFallbackTitleAndSkipRules(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("index.gmi", "intro line\n# My Page\nmore text\n")
	write("post1.gmi", "# First Post\nbody\n")
	write(".hidden.gmi", "# Hidden\n")
	write("gopher.map", "1 something")
	write("feed-extra.gmi", "skip me")

	var buf bytes.Buffer
	if err := Generate(&buf, dir, "/blog", "fqdn.example.org", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if out[:len("# My Page\r\n\r\n")] != "# My Page\r\n\r\n" {
		t.Fatalf("expected scanned title header, got %q", out)
	}
	if !strings.Contains(out, "=> /blog/post1.gmi") {
		t.Fatalf("expected post1 entry, got %q", out)
	}
	if strings.Contains(out, "gopher.map") || strings.Contains(out, "Hidden") {
		t.Fatalf("expected hidden/gopher entries skipped, got %q", out)
	}
}

func TestGenerateUsesFeedHeaderVerbatimWhenPresent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "feed-hdr.gmi"), []byte("# Custom Header\r\n\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Generate(&buf, dir, "/blog", "fqdn", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "# Custom Header\r\n\r\n" {
		t.Fatalf("expected verbatim header, got %q", buf.String())
	}
}
