// Package asynchook runs restcache.Hooks on a bounded queue so slow sinks
// stay off request paths. Events are dropped when the queue is full.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000)
//	defer hooks.Close()
//
//	reg, _ := restcache.New(restcache.Options{Library: lib, Transport: rt, Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/restcache"
)

type Hooks struct {
	inner   restcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  bool
	dropped atomic.Uint64
	mu      sync.RWMutex // guards closed and q against close
}

var _ restcache.Hooks = (*Hooks)(nil)

func New(inner restcache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = restcache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CollectionCreated(key, typ string) {
	h.try(func() { h.inner.CollectionCreated(key, typ) })
}
func (h *Hooks) CollectionCleared(typ string, n int) {
	h.try(func() { h.inner.CollectionCleared(typ, n) })
}
func (h *Hooks) PreRequestRejected(typ string, err error) {
	h.try(func() { h.inner.PreRequestRejected(typ, err) })
}
func (h *Hooks) RequestFailed(method, url string, status int, err error) {
	h.try(func() { h.inner.RequestFailed(method, url, status, err) })
}
func (h *Hooks) CacheSelfHeal(k, r string) { h.try(func() { h.inner.CacheSelfHeal(k, r) }) }
func (h *Hooks) CacheSetRejected(k string) { h.try(func() { h.inner.CacheSetRejected(k) }) }
func (h *Hooks) GenSnapshotError(s string, err error) {
	h.try(func() { h.inner.GenSnapshotError(s, err) })
}
func (h *Hooks) GenBumpError(s string, err error) { h.try(func() { h.inner.GenBumpError(s, err) }) }
