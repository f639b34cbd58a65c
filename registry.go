package restcache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dario.cat/mergo"

	"github.com/unkn0wn-root/restcache/internal/util"
	"github.com/unkn0wn-root/restcache/library"
	"github.com/unkn0wn-root/restcache/transport"
)

// Registry owns the live collections. Entries are never evicted: a
// collection lives as long as its registry, so bound views keep pointing
// at the same object. Close drops them all.
type Registry struct {
	lib           Locator
	transport     transport.Transport
	pre           PreRequestHook
	invalidator   Invalidator
	log           Logger
	hooks         Hooks
	idKey         string
	collectionKey string

	mu          sync.Mutex
	collections map[string]*Collection

	cleared listeners
}

func New(opts Options) (*Registry, error) {
	if opts.Library == nil {
		return nil, fmt.Errorf("restcache: library is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("restcache: transport is required")
	}
	return &Registry{
		lib:           opts.Library,
		transport:     opts.Transport,
		pre:           opts.PreRequest,
		invalidator:   opts.Invalidator,
		log:           coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:         coalesce[Hooks](opts.Hooks, NopHooks{}),
		idKey:         coalesce(opts.IDKey, DefaultIDKey),
		collectionKey: coalesce(opts.CollectionKey, DefaultCollectionKey),
		collections:   make(map[string]*Collection),
	}, nil
}

// Obtain returns the collection for (typ, params, opts), creating it on
// first use. Structurally equal params (and options) always yield the same
// *Collection; the configuration of the first call wins.
func (r *Registry) Obtain(typ string, params Params, opts *CollectionOptions) (*Collection, error) {
	key, err := collectionKey(typ, params, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collections == nil {
		return nil, fmt.Errorf("restcache: registry closed")
	}
	if c, ok := r.collections[key]; ok {
		return c, nil
	}

	link, err := r.lib.Lookup(typ)
	if err != nil {
		return nil, fmt.Errorf("restcache: resolve %q: %w", typ, err)
	}
	meta := Meta{
		Type:          typ,
		Params:        params.clone(),
		IDKey:         r.idKey,
		CollectionKey: r.collectionKey,
		link:          link,
	}
	if !opts.zero() {
		meta.IDKey = coalesce(opts.IDKey, meta.IDKey)
		meta.CollectionKey = coalesce(opts.CollectionKey, meta.CollectionKey)
		if opts.Cache != nil {
			cc := *opts.Cache
			meta.Cache = &cc
		}
		if meta.Configs, err = collectionConfigs(link, opts.Configs); err != nil {
			return nil, fmt.Errorf("restcache: configs of %q: %w", typ, err)
		}
	}

	c := newCollection(r, key, meta)
	r.collections[key] = c
	r.hooks.CollectionCreated(key, typ)
	r.log.Debug("collection created", Fields{"key": key, "type": typ, "uri": meta.BaseURI()})
	return c, nil
}

// Invalidate cascades an invalidation over every link whose key starts with
// prefix: live collections on those URIs are cleared and, when an
// Invalidator is configured, their cached reads are dropped.
func (r *Registry) Invalidate(ctx context.Context, prefix string) error {
	scopes := r.lib.GetByPrefix(prefix)
	if len(scopes) == 0 {
		return nil
	}
	inScope := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		inScope[s] = true
	}
	for _, c := range r.Collections() {
		if inScope[c.meta.BaseURI()] {
			c.ClearLocal()
		}
	}
	if r.invalidator == nil {
		return nil
	}

	var ierr *InvalidateError
	for _, s := range scopes {
		if err := r.invalidator.InvalidateScope(ctx, s); err != nil {
			if ierr == nil {
				ierr = &InvalidateError{Prefix: prefix}
			}
			ierr.Scopes = append(ierr.Scopes, s)
			ierr.Errs = append(ierr.Errs, err)
		}
	}
	if ierr != nil {
		r.log.Warn("invalidate failed", Fields{"prefix": prefix, "failed": len(ierr.Errs)})
		return ierr
	}
	return nil
}

// OnClear registers fn for every ClearLocal of every collection of r.
// Listeners run synchronously on the clearing goroutine.
func (r *Registry) OnClear(fn func(*Collection)) (cancel func()) { return r.cleared.add(fn) }

// Collections returns the live collections ordered by key.
func (r *Registry) Collections() []*Collection {
	r.mu.Lock()
	out := make([]*Collection, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, c)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.collections)
}

// Close forgets every collection. Collections already handed out keep
// working; Obtain fails afterwards.
func (r *Registry) Close(context.Context) error {
	r.mu.Lock()
	r.collections = nil
	r.mu.Unlock()
	r.cleared.reset()
	return nil
}

// collectionKey is typ followed by the canonical params and options.
func collectionKey(typ string, params Params, opts *CollectionOptions) (string, error) {
	p, err := util.Canonical(map[string]any(params))
	if err != nil {
		return "", fmt.Errorf("restcache: params of %q: %w", typ, err)
	}
	key := typ + "|" + p
	if !opts.zero() {
		o, err := util.Canonical(opts)
		if err != nil {
			return "", fmt.Errorf("restcache: options of %q: %w", typ, err)
		}
		key += "|" + o
	}
	return key, nil
}

// collectionConfigs normalizes per-collection configs like link configs
// and layers them over link: for a verb the collection leaves out, its
// common entry supplies the values and the link's config fills the rest.
func collectionConfigs(link library.Link, configs map[string]transport.RequestConfig) (map[string]transport.RequestConfig, error) {
	out, err := library.MergeConfigs(configs)
	if err != nil || out == nil {
		return out, err
	}
	common, ok := out[transport.ConfigCommon]
	if !ok {
		return out, nil
	}
	verbs := []string{transport.MethodGet, transport.MethodPost, transport.MethodPut, transport.MethodDelete}
	for verb := range link.Configs() {
		verbs = append(verbs, verb)
	}
	for _, verb := range verbs {
		verb = lower(verb)
		if _, set := out[verb]; set {
			continue
		}
		merged := common.Clone()
		if err := mergo.Merge(&merged, link.Config(verb)); err != nil {
			return nil, fmt.Errorf("merge %s config: %w", verb, err)
		}
		out[verb] = merged
	}
	return out, nil
}
