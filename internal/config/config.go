// Package config reads the restcache command configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cache providers.
const (
	CacheNone      = "none"
	CacheRistretto = "ristretto"
	CacheBigcache  = "bigcache"
	CacheRedis     = "redis"
)

// Gen stores.
const (
	GenLocal = "local"
	GenRedis = "redis"
)

type Config struct {
	BaseURL       string        `env:"RESTCACHE_BASE_URL"`
	LibraryFile   string        `env:"RESTCACHE_LIBRARY"`
	IDKey         string        `env:"RESTCACHE_ID_KEY"         envDefault:"id"`
	CollectionKey string        `env:"RESTCACHE_COLLECTION_KEY" envDefault:"data"`
	Timeout       time.Duration `env:"RESTCACHE_TIMEOUT"        envDefault:"30s"`
	Token         string        `env:"RESTCACHE_TOKEN"`
	// RequireAuth makes the pre-request hook reject operations without a token.
	RequireAuth bool `env:"RESTCACHE_REQUIRE_AUTH"`
	// BodyFormat encodes request bodies: json, cbor, msgpack or protobuf.
	BodyFormat string `env:"RESTCACHE_BODY_FORMAT" envDefault:"json"`

	Log   LogConfig
	Cache CacheConfig
}

type LogConfig struct {
	Backend string `env:"RESTCACHE_LOG_BACKEND" envDefault:"slog"`
	Level   string `env:"RESTCACHE_LOG_LEVEL"   envDefault:"info"`
	Format  string `env:"RESTCACHE_LOG_FORMAT"  envDefault:"text"`
}

type CacheConfig struct {
	Provider  string        `env:"RESTCACHE_CACHE"           envDefault:"ristretto"`
	TTL       time.Duration `env:"RESTCACHE_CACHE_TTL"       envDefault:"10m"`
	MaxBytes  int64         `env:"RESTCACHE_CACHE_MAX_BYTES" envDefault:"67108864"`
	Namespace string        `env:"RESTCACHE_CACHE_NAMESPACE" envDefault:"restcache"`
	GenStore  string        `env:"RESTCACHE_GENSTORE"        envDefault:"local"`
	RedisAddr string        `env:"RESTCACHE_REDIS_ADDR"      envDefault:"localhost:6379"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Log.Backend {
	case "slog", "zap", "logrus":
	default:
		return fmt.Errorf("config: unknown log backend %q", c.Log.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	switch c.BodyFormat {
	case "json", "cbor", "msgpack", "protobuf":
	default:
		return fmt.Errorf("config: unknown body format %q", c.BodyFormat)
	}
	switch c.Cache.Provider {
	case CacheNone, CacheRistretto, CacheBigcache, CacheRedis:
	default:
		return fmt.Errorf("config: unknown cache provider %q", c.Cache.Provider)
	}
	switch c.Cache.GenStore {
	case GenLocal, GenRedis:
	default:
		return fmt.Errorf("config: unknown gen store %q", c.Cache.GenStore)
	}
	if c.Cache.Provider == CacheRedis && c.Cache.GenStore == GenLocal {
		return fmt.Errorf("config: redis cache needs RESTCACHE_GENSTORE=redis so invalidations are shared")
	}
	if c.Timeout < 0 || c.Cache.TTL < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	return nil
}
