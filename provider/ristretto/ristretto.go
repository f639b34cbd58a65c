// Package ristretto stores cached responses in an in-process
// dgraph-io/ristretto cache. Entry cost is the frame length.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/restcache/provider"
)

var ErrInvalidConfig = errors.New("ristretto: invalid config")

type Provider struct {
	c *rc.Cache
}

var _ provider.Provider = (*Provider)(nil)

// Config sizes the cache. Zero fields take the defaults below.
type Config struct {
	NumCounters int64 // default 1e5
	MaxCost     int64 // bytes, default 64 MiB
	BufferItems int64 // default 64
	Metrics     bool
}

func (c Config) withDefaults() Config {
	if c.NumCounters == 0 {
		c.NumCounters = 1e5
	}
	if c.MaxCost == 0 {
		c.MaxCost = 64 << 20
	}
	if c.BufferItems == 0 {
		c.BufferItems = 64
	}
	return c
}

func New(cfg Config) (*Provider, error) {
	cfg = cfg.withDefaults()
	if cfg.NumCounters < 0 || cfg.MaxCost < 0 || cfg.BufferItems < 0 {
		return nil, ErrInvalidConfig
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set is asynchronous in ristretto; a successful Set may not be visible to
// an immediate Get. Call Wait when that matters.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if cost <= 0 {
		cost = int64(len(value))
	}
	return p.c.SetWithTTL(key, value, cost, ttl), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (p *Provider) Wait() { p.c.Wait() }

func (p *Provider) Close(context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
