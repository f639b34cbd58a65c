// Package respcache is a transport decorator that caches GET responses of
// collections that opted into caching.
//
// Entries are stamped with the generation of their scope (the collection
// base URI) observed before the request went out:
//
//   - a read is served only while the stamped gen is still current;
//   - a write is skipped when the gen moved during the fetch, so a slow read
//     can never resurrect data from before a mutation;
//   - a successful POST/PUT/DELETE on the scope, or InvalidateScope, bumps
//     the gen and so invalidates every cached read of that scope at once.
//
// Requests without a transport.CachePolicy, or with Bypass set, go straight
// to the inner transport. Concurrent identical misses share one request.
package respcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mohae/deepcopy"
	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/restcache"
	c "github.com/unkn0wn-root/restcache/codec"
	"github.com/unkn0wn-root/restcache/genstore"
	"github.com/unkn0wn-root/restcache/internal/util"
	"github.com/unkn0wn-root/restcache/internal/wire"
	"github.com/unkn0wn-root/restcache/provider"
	"github.com/unkn0wn-root/restcache/transport"
)

const (
	defaultNamespace = "restcache"
	defaultTTL       = 10 * time.Minute
	defaultSweep     = time.Hour
)

// SetCostFunc computes the provider cost of a frame. Default: its length.
type SetCostFunc func(storageKey string, frame []byte) int64

type Options struct {
	// Required
	Provider provider.Provider

	Namespace       string            // "" => "restcache"
	Codec           c.Codec[any]      // payload codec; nil => JSON
	MaxEntryBytes   int               // payloads above this are neither stored nor decoded; 0 => no limit
	GenStore        genstore.GenStore // nil => genstore.Local
	Logger          restcache.Logger  // nil => NopLogger
	Hooks           restcache.Hooks   // nil => NopHooks
	DefaultTTL      time.Duration     // policy TTL 0 => this; 0 => 10m
	CleanupInterval time.Duration     // local gen sweep; 0 => 1h
	GenRetention    time.Duration     // local gen retention; 0 => never forget
	ComputeSetCost  SetCostFunc
	Disabled        bool
}

type Transport struct {
	inner      transport.Transport
	ns         string
	provider   provider.Provider
	codec      c.Codec[any]
	maxEntry   int
	gen        genstore.GenStore
	log        restcache.Logger
	hooks      restcache.Hooks
	defaultTTL time.Duration
	cost       SetCostFunc
	enabled    bool

	group singleflight.Group
}

var (
	_ transport.Transport   = (*Transport)(nil)
	_ restcache.Invalidator = (*Transport)(nil)
)

func New(inner transport.Transport, opts Options) (*Transport, error) {
	if inner == nil {
		return nil, fmt.Errorf("respcache: inner transport is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("respcache: provider is required")
	}
	t := &Transport{
		inner:      inner,
		ns:         coalesce(opts.Namespace, defaultNamespace),
		provider:   opts.Provider,
		codec:      opts.Codec,
		maxEntry:   opts.MaxEntryBytes,
		log:        coalesce[restcache.Logger](opts.Logger, restcache.NopLogger{}),
		hooks:      coalesce[restcache.Hooks](opts.Hooks, restcache.NopHooks{}),
		defaultTTL: coalesce(opts.DefaultTTL, defaultTTL),
		cost:       opts.ComputeSetCost,
		enabled:    !opts.Disabled,
	}
	if opts.GenRetention > 0 && opts.GenRetention <= t.defaultTTL {
		return nil, fmt.Errorf("respcache: gen retention %s must exceed default TTL %s", opts.GenRetention, t.defaultTTL)
	}
	if t.codec == nil {
		t.codec = c.JSON[any]{}
	}
	if t.maxEntry > 0 {
		t.codec = c.LimitCodec[any]{Inner: t.codec, MaxDecode: t.maxEntry}
	}
	if t.cost == nil {
		t.cost = func(_ string, frame []byte) int64 { return int64(len(frame)) }
	}
	if opts.GenStore != nil {
		t.gen = opts.GenStore
	} else {
		t.gen = genstore.NewLocal(coalesce(opts.CleanupInterval, defaultSweep), opts.GenRetention)
	}
	return t, nil
}

func (t *Transport) Enabled() bool { return t.enabled }

func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	pol := req.Cache
	if !t.enabled || pol == nil || pol.Scope == "" {
		return t.inner.Do(ctx, req)
	}
	if req.Method != transport.MethodGet {
		resp, err := t.inner.Do(ctx, req)
		if err == nil {
			t.bump(ctx, pol.Scope)
		}
		return resp, err
	}
	if pol.Bypass {
		return t.inner.Do(ctx, req)
	}

	key, err := t.storageKey(req)
	if err != nil {
		t.log.Debug("uncacheable request", restcache.Fields{"url": req.URL, "err": err})
		return t.inner.Do(ctx, req)
	}
	if resp, ok := t.lookup(ctx, key, pol.Scope); ok {
		return resp, nil
	}

	// The shared fetch outlives any one caller: each caller stops waiting
	// on its own ctx, the fetch itself only ends with its own completion.
	fctx := context.WithoutCancel(ctx)
	ch := t.group.DoChan(key, func() (any, error) {
		obs, gerr := t.gen.Snapshot(fctx, pol.Scope)
		if gerr != nil {
			t.hooks.GenSnapshotError(pol.Scope, gerr)
			t.log.Warn("gen snapshot error", restcache.Fields{"scope": pol.Scope, "err": gerr})
		}
		resp, err := t.inner.Do(fctx, req)
		if err != nil {
			return nil, err
		}
		if gerr == nil && resp != nil {
			t.store(fctx, key, pol, obs, resp)
		}
		return resp, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resp, _ := res.Val.(*transport.Response)
		if res.Shared {
			resp = copyResponse(resp)
		}
		return resp, nil
	}
}

// InvalidateScope drops every cached read of scope.
func (t *Transport) InvalidateScope(ctx context.Context, scope string) error {
	if !t.enabled {
		return nil
	}
	g, err := t.gen.Bump(ctx, scope)
	if err != nil {
		t.hooks.GenBumpError(scope, err)
		return fmt.Errorf("respcache: invalidate %q: %w", scope, err)
	}
	t.log.Debug("scope invalidated", restcache.Fields{"scope": scope, "gen": g})
	return nil
}

// SnapshotGen returns the current generation of scope.
func (t *Transport) SnapshotGen(ctx context.Context, scope string) (uint64, error) {
	return t.gen.Snapshot(ctx, scope)
}

// Close closes the gen store, then the provider.
func (t *Transport) Close(ctx context.Context) error {
	return errors.Join(t.gen.Close(ctx), t.provider.Close(ctx))
}

func (t *Transport) lookup(ctx context.Context, key, scope string) (*transport.Response, bool) {
	raw, ok, err := t.provider.Get(ctx, key)
	if err != nil {
		t.log.Warn("cache get error", restcache.Fields{"key": key, "err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	e, err := wire.Decode(raw)
	if err != nil {
		t.selfHeal(ctx, key, "corrupt")
		return nil, false
	}
	cur, err := t.gen.Snapshot(ctx, scope)
	if err != nil {
		t.hooks.GenSnapshotError(scope, err)
		return nil, false
	}
	if e.Gen != cur {
		t.selfHeal(ctx, key, "gen_mismatch")
		return nil, false
	}
	body, err := t.codec.Decode(e.Payload)
	if err != nil {
		t.selfHeal(ctx, key, "value_decode")
		return nil, false
	}
	return &transport.Response{Status: e.Status, Header: http.Header{}, Body: body, Cached: true}, true
}

// store writes resp only if scope is still at the generation observed
// before the fetch.
func (t *Transport) store(ctx context.Context, key string, pol *transport.CachePolicy, obs uint64, resp *transport.Response) {
	cur, err := t.gen.Snapshot(ctx, pol.Scope)
	if err != nil {
		t.hooks.GenSnapshotError(pol.Scope, err)
		return
	}
	if cur != obs {
		t.log.Debug("cache store skipped (gen moved)", restcache.Fields{"key": key, "obs": obs, "cur": cur})
		return
	}
	payload, err := t.codec.Encode(resp.Body)
	if err != nil {
		t.log.Debug("cache store skipped (encode)", restcache.Fields{"key": key, "err": err})
		return
	}
	if t.maxEntry > 0 && len(payload) > t.maxEntry {
		t.log.Debug("cache store skipped (too large)", restcache.Fields{"key": key, "size": len(payload)})
		return
	}
	frame, err := wire.Encode(wire.Entry{Gen: obs, Status: resp.Status, Payload: payload})
	if err != nil {
		return
	}
	ttl := coalesce(pol.TTL, t.defaultTTL)
	ok, err := t.provider.Set(ctx, key, frame, t.cost(key, frame), ttl)
	if err != nil {
		t.log.Warn("cache set error", restcache.Fields{"key": key, "err": err})
		return
	}
	if !ok {
		t.hooks.CacheSetRejected(key)
	}
}

func (t *Transport) bump(ctx context.Context, scope string) {
	if g, err := t.gen.Bump(ctx, scope); err != nil {
		t.hooks.GenBumpError(scope, err)
		t.log.Error("gen bump error", restcache.Fields{"scope": scope, "err": err})
	} else {
		t.log.Debug("scope bumped", restcache.Fields{"scope": scope, "gen": g})
	}
}

func (t *Transport) selfHeal(ctx context.Context, key, reason string) {
	_ = t.provider.Del(ctx, key)
	t.hooks.CacheSelfHeal(key, reason)
}

// storageKey digests scope, URL, query and request headers, so requests
// that differ in any of them never share an entry.
func (t *Transport) storageKey(req *transport.Request) (string, error) {
	params, err := util.Canonical(req.Params)
	if err != nil {
		return "", err
	}
	headers, err := util.Canonical(req.Config.Headers)
	if err != nil {
		return "", err
	}
	return util.Digest("resp:"+t.ns, req.Cache.Scope, req.URL, params, headers), nil
}

func copyResponse(r *transport.Response) *transport.Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Header = r.Header.Clone()
	out.Body = deepcopy.Copy(r.Body)
	return &out
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
