// Package library stores resource links: dotted keys mapped to URI
// descriptors and per-verb request configuration.
//
// Descriptors are normalized once, when they are registered, into a Link.
// A descriptor is either a plain URI or a full descriptor carrying a URI
// (or a URIBuilder) and a configs map. A configs["common"] entry is folded
// into every other verb config at that point; explicit verb values win.
package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dario.cat/mergo"

	"github.com/unkn0wn-root/restcache/transport"
)

var ErrNotFound = errors.New("library: link not found")

// Route is what a URIBuilder sees when a collection resolves its URI.
type Route struct {
	Type   string
	Params map[string]any
	Entity map[string]any
}

// URIBuilder computes a URI at request time.
type URIBuilder func(Route) string

// Descriptor is the unnormalized form accepted by Extend.
// Exactly one of URI and Builder is expected; Builder wins when both are set.
type Descriptor struct {
	URI     string                             `yaml:"uri"`
	Builder URIBuilder                         `yaml:"-"`
	Configs map[string]transport.RequestConfig `yaml:"configs"`
}

// URI is the plain-string descriptor.
func URI(uri string) Descriptor { return Descriptor{URI: uri} }

// Build is the builder descriptor.
func Build(b URIBuilder) Descriptor { return Descriptor{Builder: b} }

// Relation is a list entry for ExtendList.
type Relation struct {
	Rel     string
	URI     string
	Builder URIBuilder
	Configs map[string]transport.RequestConfig
}

// Link is a normalized descriptor.
type Link struct {
	Key     string
	uri     string
	builder URIBuilder
	configs map[string]transport.RequestConfig
}

// Resolve returns the link URI for r.
func (l Link) Resolve(r Route) string {
	if l.builder != nil {
		return l.builder(r)
	}
	return l.uri
}

// Static reports whether the link has a fixed URI.
func (l Link) Static() bool { return l.builder == nil }

// Config returns a copy of the request config for verb (case-insensitive),
// falling back to the common entry.
func (l Link) Config(verb string) transport.RequestConfig {
	if cfg, ok := l.configs[strings.ToLower(verb)]; ok {
		return cfg.Clone()
	}
	return l.configs[transport.ConfigCommon].Clone()
}

// Configs returns a copy of every normalized verb config.
func (l Link) Configs() map[string]transport.RequestConfig {
	out := make(map[string]transport.RequestConfig, len(l.configs))
	for k, v := range l.configs {
		out[k] = v.Clone()
	}
	return out
}

// Library is safe for concurrent use.
type Library struct {
	mu    sync.RWMutex
	links map[string]Link
}

// New returns a library seeded with base links.
func New(base map[string]Descriptor) *Library {
	l := &Library{links: make(map[string]Link)}
	if err := l.Extend(base, ""); err != nil {
		panic(err)
	}
	return l
}

// Extend registers rels under base ("base.key"); existing keys are
// overwritten. Nothing is registered when any descriptor fails to
// normalize.
func (l *Library) Extend(rels map[string]Descriptor, base string) error {
	if len(rels) == 0 {
		return nil
	}
	prefix := keyPrefix(base)
	links := make(map[string]Link, len(rels))
	for key, d := range rels {
		link, err := normalize(prefix+key, d)
		if err != nil {
			return err
		}
		links[link.Key] = link
	}
	l.mu.Lock()
	for k, link := range links {
		l.links[k] = link
	}
	l.mu.Unlock()
	return nil
}

// ExtendList is Extend for {rel, uri} pairs. Entries without Rel are skipped.
func (l *Library) ExtendList(rels []Relation, base string) error {
	prefix := keyPrefix(base)
	links := make([]Link, 0, len(rels))
	for _, r := range rels {
		if r.Rel == "" {
			continue
		}
		link, err := normalize(prefix+r.Rel, Descriptor{URI: r.URI, Builder: r.Builder, Configs: r.Configs})
		if err != nil {
			return err
		}
		links = append(links, link)
	}
	l.mu.Lock()
	for _, link := range links {
		l.links[link.Key] = link
	}
	l.mu.Unlock()
	return nil
}

// Get returns the URI registered under key. Builder links are evaluated
// with an empty route.
func (l *Library) Get(key string) (string, error) {
	link, err := l.Lookup(key)
	if err != nil {
		return "", err
	}
	return link.Resolve(Route{Type: key}), nil
}

func (l *Library) Lookup(key string) (Link, error) {
	l.mu.RLock()
	link, ok := l.links[key]
	l.mu.RUnlock()
	if !ok {
		return Link{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return link, nil
}

// GetByPrefix returns the URIs of all keys starting with prefix, in key order.
func (l *Library) GetByPrefix(prefix string) []string {
	l.mu.RLock()
	keys := make([]string, 0, len(l.links))
	for k := range l.links {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.links[k].Resolve(Route{Type: k}))
	}
	l.mu.RUnlock()
	return out
}

// Keys returns every registered key, sorted.
func (l *Library) Keys() []string {
	l.mu.RLock()
	keys := make([]string, 0, len(l.links))
	for k := range l.links {
		keys = append(keys, k)
	}
	l.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func keyPrefix(base string) string {
	if base == "" {
		return ""
	}
	return base + "."
}

func normalize(key string, d Descriptor) (Link, error) {
	link := Link{Key: key, uri: d.URI, builder: d.Builder}
	configs, err := MergeConfigs(d.Configs)
	if err != nil {
		return Link{}, fmt.Errorf("library: %q: %w", key, err)
	}
	link.configs = configs
	return link, nil
}

// MergeConfigs lowercases verb keys and folds the common entry into every
// other verb config. Explicit verb fields and headers win. The input is not
// modified.
func MergeConfigs(configs map[string]transport.RequestConfig) (map[string]transport.RequestConfig, error) {
	if len(configs) == 0 {
		return nil, nil
	}
	out := make(map[string]transport.RequestConfig, len(configs))
	for verb, cfg := range configs {
		out[strings.ToLower(verb)] = cfg.Clone()
	}
	common, ok := out[transport.ConfigCommon]
	if !ok {
		return out, nil
	}
	for verb, cfg := range out {
		if verb == transport.ConfigCommon {
			continue
		}
		// mergo only fills zero fields and missing map keys of cfg
		if err := mergo.Merge(&cfg, common.Clone()); err != nil {
			return nil, fmt.Errorf("merge %s config: %w", verb, err)
		}
		out[verb] = cfg
	}
	return out, nil
}
