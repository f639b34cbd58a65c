package util

import (
	"strings"
	"testing"
)

func TestCanonicalIsOrderAndTypeInsensitive(t *testing.T) {
	a, err := Canonical(map[string]any{"b": 1, "a": "x"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Canonical(map[string]any{"a": "x", "b": float64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
}

func TestCanonicalEmpty(t *testing.T) {
	var nilMap map[string]any
	for _, v := range []any{nil, nilMap, map[string]any{}, []any{}} {
		s, err := Canonical(v)
		if err != nil || s != "" {
			t.Fatalf("Canonical(%#v) = %q, %v", v, s, err)
		}
	}
}

func TestCanonicalRejectsUnsupported(t *testing.T) {
	if _, err := Canonical(map[string]any{"f": func() {}}); err == nil {
		t.Fatalf("expected error for func value")
	}
}

func TestDigest(t *testing.T) {
	d := Digest("resp", "a", "b")
	if !strings.HasPrefix(d, "resp:") || len(d) != len("resp:")+16 {
		t.Fatalf("unexpected digest %q", d)
	}
	if d == Digest("resp", "ab") {
		t.Fatalf("parts must be separated")
	}
}
