package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/restcache/internal/util"
)

// Redis shares scope generations between processes. Keys are
// "<namespace>:gen:<digest of scope>". With ttl > 0 every bump refreshes the
// key expiry; an expired key reads as 0, which is only safe when ttl exceeds
// the cache entry TTL.
type Redis struct {
	rdb redis.UniversalClient
	ns  string
	ttl time.Duration
}

var _ GenStore = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	return &Redis{rdb: client, ns: namespace, ttl: ttl}
}

func (s *Redis) key(scope string) string { return util.Digest(s.ns+":gen", scope) }

func (s *Redis) Snapshot(ctx context.Context, scope string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(scope)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	g, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: parse %q: %w", scope, err)
	}
	return g, nil
}

// Bump pipelines INCR and EXPIRE when a ttl is set.
func (s *Redis) Bump(ctx context.Context, scope string) (uint64, error) {
	k := s.key(scope)
	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, k).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}
	var incr *redis.IntCmd
	if _, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	}); err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

func (s *Redis) Cleanup(time.Duration) {}

// Close closes the client; share one client with provider/redis only if
// that provider is closed first.
func (s *Redis) Close(context.Context) error { return s.rdb.Close() }
