// Package codec encodes and decodes request and response bodies.
//
// Collections exchange JSON-shaped values (map[string]any, []any, strings,
// numbers, bools, nil). Every codec returned by ForMediaType decodes into
// that shape so entities look the same regardless of the wire format.
package codec

import (
	"mime"
	"strings"
)

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Media types understood by ForMediaType.
const (
	MediaJSON     = "application/json"
	MediaCBOR     = "application/cbor"
	MediaMsgpack  = "application/msgpack"
	MediaProtobuf = "application/x-protobuf"
	MediaText     = "text/plain"
)

var media = map[string]Codec[any]{
	MediaJSON:                 JSON[any]{},
	MediaCBOR:                 MustCBOR[any](false),
	MediaMsgpack:              Msgpack[any]{},
	"application/x-msgpack":   Msgpack[any]{},
	"application/vnd.msgpack": Msgpack[any]{},
	MediaProtobuf:             Struct{},
	MediaText:                 Text{},
}

// ForMediaType returns the body codec for a Content-Type header value.
// Parameters (charset etc.) are ignored; "+json" suffixes map to JSON.
func ForMediaType(contentType string) (Codec[any], bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	if c, ok := media[mt]; ok {
		return c, true
	}
	if strings.HasSuffix(mt, "+json") {
		return JSON[any]{}, true
	}
	return nil, false
}
