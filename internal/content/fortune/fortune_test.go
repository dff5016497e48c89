package fortune

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeStrfile(t *testing.T, dir, name string, flags uint32, entries []string) {
	t.Helper()
	var body []byte
	offsets := make([]uint32, 0, len(entries))
	for _, e := range entries {
		offsets = append(offsets, uint32(len(body)))
		body = append(body, e...)
		body = append(body, "\n%\n"...)
	}
	if err := os.WriteFile(filepath.Join(dir, name), body, 0644); err != nil {
		t.Fatal(err)
	}

	hdr := make([]byte, 24)
	binary.BigEndian.PutUint32(hdr[0:4], 2)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(entries)))
	binary.BigEndian.PutUint32(hdr[8:12], 80)
	binary.BigEndian.PutUint32(hdr[12:16], 10)
	binary.BigEndian.PutUint32(hdr[16:20], flags)
	hdr[20] = '%'
	var dat []byte
	dat = append(dat, hdr...)
	for _, off := range offsets {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, off)
		dat = append(dat, b...)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".dat"), dat, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPickSelectsByIndex(t *testing.T) {
	dir := t.TempDir()
	writeStrfile(t, dir, "cookies", 0, []string{"first", "second", "third"})

	lines, err := Pick(dir, "cookies", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "second" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestPickAppliesRot13WhenFlagged(t *testing.T) {
	dir := t.TempDir()
	writeStrfile(t, dir, "cookies", strRotated, []string{"uryyb"})

	lines, err := Pick(dir, "cookies", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines[0] != "hello" {
		t.Fatalf("expected rot13-decoded line, got %q", lines[0])
	}
}

func TestWrapGeminiContinuation(t *testing.T) {
	got := WrapGemini([]string{"a sentence that trails off,", "continues here."})
	want := "\r\n> a sentence that trails off, continues here."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWrapGeminiNewQuoteAfterPunctuation(t *testing.T) {
	got := WrapGemini([]string{"Full stop.", "New quote."})
	want := "\r\n> Full stop.\r\n> New quote."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
