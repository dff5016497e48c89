package log

import (
	"bytes"
	"strings"
	"testing"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestLevelGating(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(nopCloser{buf})
	l.SetLevel(WARN)
	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged at INFO when level is WARN, got %q", buf.String())
	}
	l.Warn("should appear", KV("key", "value"))
	if !strings.Contains(buf.String(), "should appear") || !strings.Contains(buf.String(), "key=value") {
		t.Fatalf("unexpected log line: %q", buf.String())
	}
}

func TestKVErr(t *testing.T) {
	sd := KVErr(errString("boom"))
	if sd.Name != "error" || sd.Value != "boom" {
		t.Fatalf("unexpected KVErr: %+v", sd)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
