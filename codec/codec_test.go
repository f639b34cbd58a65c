package codec

import (
	"errors"
	"reflect"
	"testing"
)

func TestForMediaType(t *testing.T) {
	cases := map[string]reflect.Type{
		"application/json; charset=utf-8": reflect.TypeOf(JSON[any]{}),
		"application/hal+json":            reflect.TypeOf(JSON[any]{}),
		"application/msgpack":             reflect.TypeOf(Msgpack[any]{}),
		"application/x-protobuf":          reflect.TypeOf(Struct{}),
		"text/plain; charset=utf-8":       reflect.TypeOf(Text{}),
	}
	for ct, want := range cases {
		c, ok := ForMediaType(ct)
		if !ok {
			t.Fatalf("%q: no codec", ct)
		}
		if got := reflect.TypeOf(c); got != want {
			t.Fatalf("%q: got %v want %v", ct, got, want)
		}
	}
	if _, ok := ForMediaType("image/png"); ok {
		t.Fatalf("image/png should not resolve")
	}
	if _, ok := ForMediaType(";;"); ok {
		t.Fatalf("garbage content type should not resolve")
	}
}

// Every body codec must hand collections string-keyed maps.
func TestBodyCodecsDecodeStringKeyedMaps(t *testing.T) {
	body := map[string]any{"id": 7, "tags": []any{"a", "b"}, "nested": map[string]any{"x": true}}
	for _, ct := range []string{MediaJSON, MediaCBOR, MediaMsgpack, MediaProtobuf} {
		c, _ := ForMediaType(ct)
		b, err := c.Encode(body)
		if err != nil {
			t.Fatalf("%s encode: %v", ct, err)
		}
		v, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s decode: %v", ct, err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("%s: decoded %T, want map[string]any", ct, v)
		}
		if _, ok := m["nested"].(map[string]any); !ok {
			t.Fatalf("%s: nested decoded %T", ct, m["nested"])
		}
	}
}

func TestLimitCodec(t *testing.T) {
	lc := LimitCodec[any]{Inner: JSON[any]{}, MaxDecode: 4}
	if _, err := lc.Decode([]byte(`"toolong"`)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	v, err := lc.Decode([]byte(`12`))
	if err != nil || v.(float64) != 12 {
		t.Fatalf("small payload: v=%v err=%v", v, err)
	}
}

func TestTextRejectsStructuredValues(t *testing.T) {
	if _, err := (Text{}).Encode(map[string]any{}); err == nil {
		t.Fatalf("expected error")
	}
	b, err := (Text{}).Encode("hi")
	if err != nil || string(b) != "hi" {
		t.Fatalf("b=%q err=%v", b, err)
	}
}

type record map[string]any

func TestStructEncodesNamedMapsAndSlices(t *testing.T) {
	body := map[string]any{
		"data":  []record{{"id": 1, "tags": []string{"a"}}, {"id": 2}},
		"owner": record{"id": 9},
	}
	var s Struct
	b, err := s.Encode(body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := s.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"data":  []any{map[string]any{"id": 1.0, "tags": []any{"a"}}, map[string]any{"id": 2.0}},
		"owner": map[string]any{"id": 9.0},
	}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %#v want %#v", v, want)
	}
}
