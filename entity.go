package restcache

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/mohae/deepcopy"
)

// Entity is one server record. Identity is decided by a single field
// (Meta.IDKey), compared by value.
type Entity map[string]any

// Params are query parameters.
type Params map[string]any

// ID returns the identifier value stored under idKey.
func (e Entity) ID(idKey string) any { return e[idKey] }

// Persisted reports whether e carries a truthy identifier.
func (e Entity) Persisted(idKey string) bool { return truthy(e[idKey]) }

// Clone deep-copies e.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	return deepcopy.Copy(e).(Entity)
}

func (p Params) clone() Params {
	if p == nil {
		return Params{}
	}
	return deepcopy.Copy(p).(Params)
}

func cloneAll(seq []Entity) []Entity {
	out := make([]Entity, len(seq))
	for i, e := range seq {
		out[i] = e.Clone()
	}
	return out
}

// truthy: nil, false, zero numbers, NaN and "" are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	}
	if s, ok := numericKey(v); ok {
		return s != "0"
	}
	return true
}

// normID normalizes an identifier for comparison. Numbers of every Go type
// share one spelling; other values are compared in their fmt form.
func normID(v any) (string, bool) {
	if !truthy(v) {
		return "", false
	}
	if s, ok := v.(string); ok {
		return "s:" + s, true
	}
	if s, ok := numericKey(v); ok {
		return "n:" + s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return "j:" + string(b), true
}

func numericKey(v any) (string, bool) {
	switch t := v.(type) {
	case int:
		return strconv.FormatInt(int64(t), 10), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return formatFloat(float64(t)), true
	case float64:
		return formatFloat(t), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return formatFloat(f), true
		}
		return t.String(), true
	}
	return "", false
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// pathID renders an identifier as a URL path segment.
func pathID(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := numericKey(v); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
