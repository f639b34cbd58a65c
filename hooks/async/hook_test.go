package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/restcache"
)

type counter struct {
	restcache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (c *counter) add(s string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.events = append(c.events, s)
	c.mu.Unlock()
}

func (c *counter) CollectionCreated(key, _ string)           { c.add("created:" + key) }
func (c *counter) RequestFailed(m, _ string, _ int, _ error) { c.add("failed:" + m) }
func (c *counter) CacheSelfHeal(_, reason string)            { c.add("heal:" + reason) }

func TestEventsAreDeliveredBeforeClose(t *testing.T) {
	inner := &counter{}
	h := New(inner, 2, 16)

	h.CollectionCreated("users|", "users")
	h.RequestFailed("GET", "/users", 500, errors.New("boom"))
	h.CacheSelfHeal("k", "corrupt")
	h.Close()

	if len(inner.events) != 3 {
		t.Fatalf("events=%v want 3", inner.events)
	}
}

func TestFullQueueDrops(t *testing.T) {
	inner := &counter{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// one event is held by the worker, one fills the queue, the rest drop
	for i := 0; i < 10; i++ {
		h.CacheSelfHeal("k", "corrupt")
	}
	close(inner.block)
	h.Close()

	if h.Dropped() == 0 {
		t.Fatal("expected drops with a full queue")
	}
	if got := uint64(len(inner.events)) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped=%d want 10", got)
	}
}

func TestAfterCloseIsDropped(t *testing.T) {
	h := New(nil, 1, 1)
	h.Close()
	h.Close()
	h.GenBumpError("/users", errors.New("down"))
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", h.Dropped())
	}
}
