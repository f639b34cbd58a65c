package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdslog "log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/restcache"
	c "github.com/unkn0wn-root/restcache/codec"
	"github.com/unkn0wn-root/restcache/genstore"
	asynchook "github.com/unkn0wn-root/restcache/hooks/async"
	"github.com/unkn0wn-root/restcache/internal/config"
	"github.com/unkn0wn-root/restcache/library"
	rclogrus "github.com/unkn0wn-root/restcache/log/logrus"
	rcslog "github.com/unkn0wn-root/restcache/log/slog"
	rczap "github.com/unkn0wn-root/restcache/log/zap"
	"github.com/unkn0wn-root/restcache/provider"
	"github.com/unkn0wn-root/restcache/provider/bigcache"
	redisprovider "github.com/unkn0wn-root/restcache/provider/redis"
	"github.com/unkn0wn-root/restcache/provider/ristretto"
	"github.com/unkn0wn-root/restcache/respcache"
	"github.com/unkn0wn-root/restcache/sloghooks"
	"github.com/unkn0wn-root/restcache/transport"
)

// ErrNoToken is returned by the pre-request hook when auth is required
// and no token is configured.
var ErrNoToken = errors.New("no API token configured")

// App is the composition root shared by every command.
type App struct {
	Config   config.Config
	Library  *library.Library
	Registry *restcache.Registry
	Log      restcache.Logger

	cache *respcache.Transport
	hooks *asynchook.Hooks
}

// NewApp wires logger, library, transport and response cache from cfg.
// The caller must Close the app.
func NewApp(cfg config.Config, stderr io.Writer) (*App, error) {
	a := &App{Config: cfg}

	log, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}
	a.Log = log
	a.hooks = asynchook.New(sloghooks.New(newSlog(cfg.Log, stderr), sloghooks.Options{SelfHealEvery: 10}), 1, 256)

	a.Library = library.New(nil)
	if cfg.LibraryFile != "" {
		f, err := os.Open(cfg.LibraryFile)
		if err != nil {
			a.hooks.Close()
			return nil, fmt.Errorf("open library: %w", err)
		}
		err = a.Library.LoadYAML(f, "")
		_ = f.Close()
		if err != nil {
			a.hooks.Close()
			return nil, fmt.Errorf("load library %s: %w", cfg.LibraryFile, err)
		}
	}

	httpOpts := []transport.HTTPOption{transport.WithTimeout(cfg.Timeout)}
	if cfg.BaseURL != "" {
		httpOpts = append(httpOpts, transport.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Token != "" {
		httpOpts = append(httpOpts, transport.WithToken(cfg.Token))
	}
	if mt, codec := bodyCodec(cfg.BodyFormat); codec != nil {
		httpOpts = append(httpOpts, transport.WithBodyCodec(mt, codec))
	}
	var rt transport.Transport = transport.NewHTTP(httpOpts...)

	opts := restcache.Options{
		Library:       a.Library,
		Transport:     rt,
		Logger:        log,
		Hooks:         a.hooks,
		IDKey:         cfg.IDKey,
		CollectionKey: cfg.CollectionKey,
	}
	if cfg.RequireAuth {
		opts.PreRequest = restcache.PreRequestFunc(func(context.Context) error {
			if cfg.Token == "" {
				return ErrNoToken
			}
			return nil
		})
	}

	if cfg.Cache.Provider != config.CacheNone {
		cache, err := a.newCache(rt, cfg.Cache)
		if err != nil {
			_ = a.Close(context.Background())
			return nil, err
		}
		a.cache = cache
		opts.Transport = cache
		opts.Invalidator = cache
	}

	reg, err := restcache.New(opts)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	a.Registry = reg
	return a, nil
}

// Close tears down the registry, the cache and the hook queue.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Registry != nil {
		errs = append(errs, a.Registry.Close(ctx))
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close(ctx))
	}
	if a.hooks != nil {
		a.hooks.Close()
	}
	return errors.Join(errs...)
}

func (a *App) newCache(inner transport.Transport, cfg config.CacheConfig) (*respcache.Transport, error) {
	var (
		rdb goredis.UniversalClient
		gen genstore.GenStore
		pr  provider.Provider
		err error
	)
	if cfg.Provider == config.CacheRedis || cfg.GenStore == config.GenRedis {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		// the gen store owns the client and closes it
		gen = genstore.NewRedis(rdb, cfg.Namespace, 0)
	}

	switch cfg.Provider {
	case config.CacheRistretto:
		pr, err = ristretto.New(ristretto.Config{MaxCost: cfg.MaxBytes})
	case config.CacheBigcache:
		pr, err = bigcache.New(bigcache.Config{LifeWindow: cfg.TTL, HardMaxCacheSizeMB: int(cfg.MaxBytes >> 20)})
	case config.CacheRedis:
		pr, err = redisprovider.New(redisprovider.Config{Client: rdb})
	default:
		err = fmt.Errorf("unknown cache provider %q", cfg.Provider)
	}
	if err != nil {
		if gen != nil {
			_ = gen.Close(context.Background())
		}
		return nil, fmt.Errorf("cache provider: %w", err)
	}

	rc, err := respcache.New(inner, respcache.Options{
		Provider:   pr,
		Namespace:  cfg.Namespace,
		GenStore:   gen,
		Logger:     a.Log,
		Hooks:      a.hooks,
		DefaultTTL: cfg.TTL,
	})
	if err != nil {
		_ = pr.Close(context.Background())
		if gen != nil {
			_ = gen.Close(context.Background())
		}
		return nil, err
	}
	return rc, nil
}

func bodyCodec(format string) (string, c.Codec[any]) {
	mt := map[string]string{
		"cbor":     c.MediaCBOR,
		"msgpack":  c.MediaMsgpack,
		"protobuf": c.MediaProtobuf,
	}[format]
	if mt == "" {
		return "", nil
	}
	codec, _ := c.ForMediaType(mt)
	return mt, codec
}

func newLogger(cfg config.LogConfig, w io.Writer) (restcache.Logger, error) {
	switch cfg.Backend {
	case "zap":
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("zap level: %w", err)
		}
		zc := zap.NewProductionConfig()
		if cfg.Format == "text" {
			zc = zap.NewDevelopmentConfig()
		}
		zc.Level = lvl
		zc.OutputPaths = []string{"stderr"}
		l, err := zc.Build()
		if err != nil {
			return nil, fmt.Errorf("zap: %w", err)
		}
		return rczap.ZapLogger{L: l}, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logrus level: %w", err)
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		if cfg.Format == "json" {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
		return rclogrus.LogrusLogger{E: logrus.NewEntry(l)}, nil
	default:
		return rcslog.Logger{L: newSlog(cfg, w)}, nil
	}
}

func newSlog(cfg config.LogConfig, w io.Writer) *stdslog.Logger {
	var lvl stdslog.Level
	_ = lvl.UnmarshalText([]byte(cfg.Level))
	ho := &stdslog.HandlerOptions{Level: lvl}
	if cfg.Format == "json" {
		return stdslog.New(stdslog.NewJSONHandler(w, ho))
	}
	return stdslog.New(stdslog.NewTextHandler(w, ho))
}
