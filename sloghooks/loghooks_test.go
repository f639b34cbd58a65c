package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestKeysAreRedacted(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.CacheSelfHeal("resp:ns:secret", "corrupt")

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("key leaked: %s", out)
	}
	if !strings.Contains(out, "reason=corrupt") {
		t.Fatalf("reason missing: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{Redact: func(string) string { return "X" }})
	h.CacheSetRejected("k")
	if !strings.Contains(buf.String(), "key=X") {
		t.Fatalf("out=%s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{RequestFailedEvery: 3})
	for i := 0; i < 9; i++ {
		h.RequestFailed("GET", "/a", 500, errors.New("boom"))
	}
	if n := strings.Count(buf.String(), "restcache.request_failed"); n != 3 {
		t.Fatalf("logged %d want 3", n)
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	h := New(nil, Options{})
	h.GenBumpError("/a", errors.New("x"))
	h.PreRequestRejected("users", errors.New("x"))
}
