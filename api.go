package restcache

import (
	"time"

	"github.com/unkn0wn-root/restcache/library"
	"github.com/unkn0wn-root/restcache/transport"
)

const (
	DefaultIDKey         = "id"
	DefaultCollectionKey = "data"
)

// Locator resolves resource types to links. *library.Library implements it.
type Locator interface {
	Lookup(key string) (library.Link, error)
	GetByPrefix(prefix string) []string
}

// Options configure a Registry. Only Library and Transport are required.
type Options struct {
	// Required
	Library   Locator
	Transport transport.Transport

	PreRequest    PreRequestHook // nil => every operation passes
	Invalidator   Invalidator    // optional; usually the respcache transport
	Logger        Logger         // if nil, NopLogger is used
	Hooks         Hooks          // if nil, NopHooks is used
	IDKey         string         // "" => "id"
	CollectionKey string         // "" => "data"
}

// CollectionOptions override registry defaults for one collection. They are
// part of the registry key, so two Obtain calls with different options get
// different collections.
type CollectionOptions struct {
	IDKey         string                             `json:"idKey,omitempty"`
	CollectionKey string                             `json:"collectionKey,omitempty"`
	Cache         *CacheConfig                       `json:"cache,omitempty"`
	Configs       map[string]transport.RequestConfig `json:"configs,omitempty"`
}

func (o *CollectionOptions) zero() bool {
	return o == nil || (o.IDKey == "" && o.CollectionKey == "" && o.Cache == nil && len(o.Configs) == 0)
}

// CacheConfig opts a collection into the transport response cache.
// TTL 0 uses the cache default.
type CacheConfig struct {
	TTL time.Duration `json:"ttl,omitempty"`
}

// Meta describes a collection. It never changes after construction.
type Meta struct {
	Type          string
	Params        Params
	IDKey         string
	CollectionKey string
	Cache         *CacheConfig
	Configs       map[string]transport.RequestConfig

	link library.Link
}

// URI resolves the collection URI for a request.
func (m Meta) URI(params Params, entity Entity) string {
	return m.link.Resolve(library.Route{Type: m.Type, Params: params, Entity: entity})
}

// BaseURI is the URI with no request context. It names the cache scope and
// is what library.GetByPrefix reports for this type.
func (m Meta) BaseURI() string { return m.link.Resolve(library.Route{Type: m.Type}) }

func (m Meta) config(method string) transport.RequestConfig {
	if cfg, ok := m.Configs[lower(method)]; ok {
		return cfg.Clone()
	}
	return m.link.Config(method)
}

func (m Meta) clone() Meta {
	out := m
	out.Params = m.Params.clone()
	if m.Cache != nil {
		cc := *m.Cache
		out.Cache = &cc
	}
	if m.Configs != nil {
		out.Configs = make(map[string]transport.RequestConfig, len(m.Configs))
		for k, v := range m.Configs {
			out.Configs[k] = v.Clone()
		}
	}
	return out
}
