package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "id", cfg.IDKey)
	assert.Equal(t, "data", cfg.CollectionKey)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, CacheRistretto, cfg.Cache.Provider)
	assert.Equal(t, GenLocal, cfg.Cache.GenStore)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "slog", cfg.Log.Backend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RESTCACHE_BASE_URL", "https://api.example.com")
	t.Setenv("RESTCACHE_ID_KEY", "_id")
	t.Setenv("RESTCACHE_TIMEOUT", "5s")
	t.Setenv("RESTCACHE_REQUIRE_AUTH", "true")
	t.Setenv("RESTCACHE_CACHE", "redis")
	t.Setenv("RESTCACHE_GENSTORE", "redis")
	t.Setenv("RESTCACHE_LOG_BACKEND", "zap")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, "_id", cfg.IDKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.RequireAuth)
	assert.Equal(t, CacheRedis, cfg.Cache.Provider)
	assert.Equal(t, "zap", cfg.Log.Backend)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"RESTCACHE_LOG_BACKEND": "glog",
		"RESTCACHE_LOG_LEVEL":   "loud",
		"RESTCACHE_LOG_FORMAT":  "xml",
		"RESTCACHE_CACHE":       "memcached",
		"RESTCACHE_GENSTORE":    "etcd",
		"RESTCACHE_BODY_FORMAT": "xml",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRedisCacheNeedsSharedGens(t *testing.T) {
	t.Setenv("RESTCACHE_CACHE", "redis")
	_, err := Load()
	assert.Error(t, err)
}

func TestBadDuration(t *testing.T) {
	t.Setenv("RESTCACHE_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}
