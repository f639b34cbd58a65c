package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct carries JSON-shaped bodies as a serialized google.protobuf.Value.
// Numbers decode as float64, exactly like JSON.
type Struct struct{}

func (Struct) Encode(v any) ([]byte, error) {
	pv, err := structpb.NewValue(plain(v))
	if err != nil {
		return nil, fmt.Errorf("codec: protobuf value: %w", err)
	}
	return proto.Marshal(pv)
}

func (Struct) Decode(b []byte) (any, error) {
	var pv structpb.Value
	if err := proto.Unmarshal(b, &pv); err != nil {
		return nil, err
	}
	return pv.AsInterface(), nil
}

// plain rebuilds maps with string keys and slices of any element type as
// map[string]any and []any, so named types such as restcache.Entity or
// []restcache.Entity reach structpb.NewValue in a shape it accepts.
func plain(v any) any {
	switch t := v.(type) {
	case nil, []byte:
		return v
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out[it.Key().String()] = plain(it.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
