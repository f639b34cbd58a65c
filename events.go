package restcache

import (
	"slices"
	"sync"
)

// listeners is a set of clear callbacks. Emission is synchronous and
// happens outside the lock so callbacks may read the collection.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(*Collection)
}

func (l *listeners) add(fn func(*Collection)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(*Collection))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// emit calls every listener in registration order.
func (l *listeners) emit(c *Collection) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	fns := make([]func(*Collection), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (l *listeners) reset() {
	l.mu.Lock()
	l.fns = nil
	l.mu.Unlock()
}
