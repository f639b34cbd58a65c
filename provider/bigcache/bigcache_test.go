package bigcache

import (
	"bytes"
	"context"
	"testing"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{HardMaxCacheSizeMB: 8})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close(ctx)

	if _, hit, err := p.Get(ctx, "k"); hit || err != nil {
		t.Fatalf("empty cache hit=%v err=%v", hit, err)
	}
	ok, err := p.Set(ctx, "k", []byte("frame"), 5, 0)
	if err != nil || !ok {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	got, hit, err := p.Get(ctx, "k")
	if err != nil || !hit || !bytes.Equal(got, []byte("frame")) {
		t.Fatalf("Get=%q hit=%v err=%v", got, hit, err)
	}

	if err := p.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("second Del: %v", err)
	}
}
