// Package transport defines the request capability consumed by restcache
// collections and a net/http implementation of it.
//
// A Transport performs exactly one request per Do call. It must be safe for
// concurrent use. Failures that carry an HTTP status (or none, for network
// errors) are reported as *Error so callers can inspect Status with errors.As.
package transport

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"time"
)

// Methods used by collections.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
)

// ConfigCommon is the per-link config entry merged into every verb.
const ConfigCommon = "common"

// Transport issues one request and returns its response or a failure.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Do(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

// RequestConfig is the per-verb request configuration attached to a link.
type RequestConfig struct {
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Clone returns a copy that shares no maps with c.
func (c RequestConfig) Clone() RequestConfig {
	out := c
	if c.Headers != nil {
		out.Headers = maps.Clone(c.Headers)
	}
	return out
}

// CachePolicy marks a request as belonging to a cacheable scope.
// Scope is the collection base URI; mutations on a scope invalidate its
// cached reads. Bypass skips both read and write of the cache.
type CachePolicy struct {
	Scope  string
	TTL    time.Duration
	Bypass bool
}

type Request struct {
	Method string
	URL    string
	Params map[string]any
	Body   any
	Config RequestConfig
	Cache  *CachePolicy
}

type Response struct {
	Status int
	Header http.Header
	Body   any
	Cached bool // served by a response cache
}

// Error is a transport failure. Status is 0 when no response was received.
type Error struct {
	Method string
	URL    string
	Status int
	Body   any
	Cause  error
}

func (e *Error) Error() string {
	switch {
	case e.Status > 0 && e.Cause != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.Status, e.Cause)
	case e.Status > 0:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
	default:
		return fmt.Sprintf("%s %s: request failed", e.Method, e.URL)
	}
}

func (e *Error) Unwrap() error { return e.Cause }
