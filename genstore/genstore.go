// Package genstore keeps scope generations for the response cache.
//
// A scope is a collection base URI. Every cached read is stamped with the
// generation its scope had before the request went out; a mutation on the
// scope bumps the generation and so invalidates every older read at once.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use Local (default) for in-process gens, or Redis to share them between
// processes that share a cache provider.
type GenStore interface {
	// Snapshot returns the current generation of scope; missing => 0.
	Snapshot(ctx context.Context, scope string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, scope string) (uint64, error)
	// Cleanup forgets scopes untouched for longer than retention (no-op for Redis).
	Cleanup(retention time.Duration)
	Close(context.Context) error
}
