// Package sloghooks logs restcache.Hooks events with log/slog. Cache keys
// are redacted and the noisy events can be sampled.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/restcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery      uint64
	RequestFailedEvery uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	failedCtr   atomic.Uint64
}

var _ restcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CollectionCreated(key, typ string) {
	if h.l == nil {
		return
	}
	h.l.Debug("restcache.collection_created", "key", h.redact(key), "type", typ)
}

func (h *Hooks) CollectionCleared(typ string, dropped int) {
	if h.l == nil {
		return
	}
	h.l.Debug("restcache.collection_cleared", "type", typ, "dropped", dropped)
}

func (h *Hooks) PreRequestRejected(typ string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("restcache.pre_request_rejected", "type", typ, "err", err)
}

func (h *Hooks) RequestFailed(method, url string, status int, err error) {
	if h.l == nil || !sample(h.opts.RequestFailedEvery, &h.failedCtr) {
		return
	}
	h.l.Warn("restcache.request_failed",
		"method", method,
		"url", url,
		"status", status,
		"err", err)
}

func (h *Hooks) CacheSelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("restcache.cache_self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) CacheSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("restcache.cache_set_rejected", "key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(scope string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("restcache.gen_snapshot_error", "scope", scope, "err", err)
}

func (h *Hooks) GenBumpError(scope string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("restcache.gen_bump_error", "scope", scope, "err", err)
}
