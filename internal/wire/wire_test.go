package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func mustEncode(t *testing.T, e Entry) []byte {
	t.Helper()
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

func TestEntryEmptyAndNonEmpty(t *testing.T) {
	cases := []Entry{
		{Gen: 0, Status: 200},
		{Gen: 42, Status: 203, Payload: []byte(`{"id":1}`)},
		{Gen: math.MaxUint64, Status: 200, Payload: []byte{0, 1, 2, 3}},
	}
	for _, tc := range cases {
		got, err := Decode(mustEncode(t, tc))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Gen != tc.Gen || got.Status != tc.Status {
			t.Fatalf("header mismatch: got %+v want %+v", got, tc)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	b := append(mustEncode(t, Entry{Gen: 7, Status: 200, Payload: []byte("x")}), 0xDE, 0xAD)
	if _, err := Decode(b); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestDecodeCorruptHeaders(t *testing.T) {
	enc := mustEncode(t, Entry{Gen: 1, Status: 200, Payload: []byte("abc")})

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
	if _, err := Decode(enc[:headerLen-1]); err == nil {
		t.Fatalf("expected error on truncated header")
	}
}

func TestEncodeRejectsBadStatus(t *testing.T) {
	if _, err := Encode(Entry{Status: 70000}); err == nil {
		t.Fatalf("expected error on status > u16")
	}
}
