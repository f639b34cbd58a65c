// Package provider defines the byte store behind the response cache.
//
// Stores must be byte-for-byte transparent: Get returns exactly the bytes
// given to Set for that key. The "resp:<namespace>:" keyspace belongs to
// respcache; foreign values found there fail frame validation and are
// deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl (0 => store default). cost is a size hint.
	// ok=false means the store dropped the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
