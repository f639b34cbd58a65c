package util

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Canonical serializes v deterministically. Map keys are sorted by
// encoding/json and numbers of any Go type share one spelling, so two
// structurally equal values always yield the same string. nil and empty
// maps/slices serialize to "".
func Canonical(v any) (string, error) {
	if isEmpty(v) {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical key: %w", err)
	}
	return string(b), nil
}

// Digest returns prefix + ":" + the first 16 hex chars of sha256 over the
// parts joined by NUL.
func Digest(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s:%x", prefix, sum[:8])
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
