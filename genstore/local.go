package genstore

import (
	"context"
	"sync"
	"time"
)

type scopeGen struct {
	gen     uint64
	touched time.Time
}

// Local keeps generations in-process.
//
// With retention > 0 a background loop forgets scopes not bumped within
// retention. A forgotten scope reads as 0 again, so retention must be longer
// than the longest TTL of the cache entries stamped against it.
type Local struct {
	mu   sync.RWMutex
	gens map[string]scopeGen

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

var _ GenStore = (*Local)(nil)

func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{gens: make(map[string]scopeGen)}
	if cleanupInterval <= 0 || retention <= 0 {
		return s
	}
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(cleanupInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.Cleanup(retention)
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

func (s *Local) Snapshot(_ context.Context, scope string) (uint64, error) {
	s.mu.RLock()
	g := s.gens[scope].gen
	s.mu.RUnlock()
	return g, nil
}

func (s *Local) Bump(_ context.Context, scope string) (uint64, error) {
	s.mu.Lock()
	g := s.gens[scope]
	g.gen++
	g.touched = time.Now()
	s.gens[scope] = g
	s.mu.Unlock()
	return g.gen, nil
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)
	s.mu.Lock()
	for k, g := range s.gens {
		if g.touched.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Len reports how many scopes currently have a generation.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *Local) Close(context.Context) error {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			s.wg.Wait()
		}
	})
	return nil
}
