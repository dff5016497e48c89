package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotCopiesIntoArchiveTree(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "file.ext")
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := Snapshot(root, target, ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	archived := filepath.Join(root, "archive", "a", "b", "file.ext", "20260102-030405")
	got, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("expected archived copy: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("unexpected archived content: %q", got)
	}
}

func TestSnapshotMissingTargetIsNotError(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "nope.ext")
	if err := Snapshot(root, target, time.Now()); err != nil {
		t.Fatalf("expected nil error for missing target, got %v", err)
	}
}

func TestReplaceWithTempSwapsContent(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "tinylog.gmi")
	if err := os.WriteFile(target, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	tmp := filepath.Join(root, "~tinylog.tmp")
	if err := os.WriteFile(tmp, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceWithTemp(target, tmp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("expected replaced content, got %q", got)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file removed")
	}
}
