package ristretto

import (
	"bytes"
	"context"
	"testing"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{MaxCost: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close(ctx)

	ok, err := p.Set(ctx, "k", []byte("frame"), 0, 0)
	if err != nil || !ok {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	p.Wait()

	got, hit, err := p.Get(ctx, "k")
	if err != nil || !hit || !bytes.Equal(got, []byte("frame")) {
		t.Fatalf("Get=%q hit=%v err=%v", got, hit, err)
	}

	_ = p.Del(ctx, "k")
	if _, hit, _ := p.Get(ctx, "k"); hit {
		t.Fatal("hit after Del")
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{MaxCost: -1}); err != ErrInvalidConfig {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
}
