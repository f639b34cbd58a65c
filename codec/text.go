package codec

import (
	"fmt"
)

// Text is the text/plain body codec. Decode always yields a string.
// Encode accepts string, []byte and fmt.Stringer.
type Text struct{}

func (Text) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case fmt.Stringer:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("codec: text cannot encode %T", v)
	}
}

func (Text) Decode(b []byte) (any, error) { return string(b), nil }
