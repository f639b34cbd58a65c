package restcache

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMergeAppendsUnknown(t *testing.T) {
	seq := []Entity{{"id": 1}}
	seq = Merge(seq, Entity{"id": 2, "a": "b"}, "id")
	if len(seq) != 2 || seq[1]["a"] != "b" {
		t.Fatalf("seq=%v", seq)
	}
}

func TestMergeOverwritesInPlace(t *testing.T) {
	held := Entity{"id": 1, "a": "x", "keep": true}
	seq := []Entity{{"id": 0.5}, held, {"id": 3}}

	seq = Merge(seq, Entity{"id": 1, "a": "y"}, "id")
	if len(seq) != 3 {
		t.Fatalf("len=%d want 3", len(seq))
	}
	if reflect.ValueOf(seq[1]).Pointer() != reflect.ValueOf(held).Pointer() {
		t.Fatal("position or identity changed")
	}
	want := Entity{"id": 1, "a": "y", "keep": true}
	if !reflect.DeepEqual(held, want) {
		t.Fatalf("held=%v want %v", held, want)
	}
}

func TestMergeIdempotent(t *testing.T) {
	var seq []Entity
	seq = Merge(seq, Entity{"id": "u1", "v": 1}, "id")
	seq = Merge(seq, Entity{"id": "u1", "v": 2}, "id")
	if len(seq) != 1 || seq[0]["v"] != 2 {
		t.Fatalf("seq=%v", seq)
	}
}

func TestMergeWithoutIDAlwaysAppends(t *testing.T) {
	var seq []Entity
	for _, id := range []any{nil, "", 0, false} {
		seq = Merge(seq, Entity{"id": id}, "id")
	}
	seq = Merge(seq, Entity{"a": 1}, "id")
	if len(seq) != 5 {
		t.Fatalf("len=%d want 5", len(seq))
	}
}

func TestMergeMatchesNumericIDsAcrossTypes(t *testing.T) {
	seq := []Entity{{"id": json.Number("7")}}
	for _, id := range []any{7, int64(7), uint8(7), float32(7), 7.0} {
		seq = Merge(seq, Entity{"id": id, "t": reflect.TypeOf(id).String()}, "id")
	}
	if len(seq) != 1 || seq[0]["t"] != "float64" {
		t.Fatalf("seq=%v", seq)
	}
	// "7" the string is a different identifier
	seq = Merge(seq, Entity{"id": "7"}, "id")
	if len(seq) != 2 {
		t.Fatalf("string id matched a number: %v", seq)
	}
}

func TestMergeCustomIDKey(t *testing.T) {
	seq := []Entity{{"_id": "a", "id": 1}}
	seq = Merge(seq, Entity{"_id": "a", "id": 2}, "_id")
	if len(seq) != 1 || seq[0]["id"] != 2 {
		t.Fatalf("seq=%v", seq)
	}
}
