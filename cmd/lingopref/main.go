package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/pitabwire/util"

	"github.com/mzalendo/lingopref"
	"github.com/mzalendo/lingopref/cache"
	cacheredis "github.com/mzalendo/lingopref/cache/redis"
	cachevalkey "github.com/mzalendo/lingopref/cache/valkey"
	"github.com/mzalendo/lingopref/config"
)

const serviceName = "lingopref"

func main() {
	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		util.Log(context.Background()).WithError(err).Error("could not process configuration")
		os.Exit(1)
	}

	ctx, svc := lingopref.NewService(serviceName,
		lingopref.WithConfig(&cfg),
		lingopref.WithCache(openCache(&cfg)),
	)
	defer svc.Stop(ctx)

	log := svc.Log(ctx)
	log.WithField("port", cfg.HTTPServerPort).Info("starting service")

	if err = svc.Run(ctx, cfg.HTTPServerPort); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("service exited with error")
		os.Exit(1)
	}
}

// openCache connects to the cache named by CACHE_URI. A redis:// URI uses
// the go-redis client, anything else goes through Valkey. No URI keeps
// selections in process.
func openCache(cfg *config.ConfigurationDefault) cache.RawCache {
	if cfg.CacheURI == "" {
		return cache.NewInMemoryCache()
	}

	maxAge, _ := time.ParseDuration(cfg.GetCacheMaxAge())

	var raw cache.RawCache
	var err error
	if strings.HasPrefix(cfg.CacheURI, "redis://") {
		raw, err = cacheredis.New(cacheredis.Options{URI: cfg.CacheURI, MaxAge: maxAge})
	} else {
		raw, err = cachevalkey.New(cachevalkey.Options{URI: cfg.CacheURI, MaxAge: maxAge})
	}
	if err != nil {
		util.Log(context.Background()).WithError(err).
			WithField("uri", cfg.CacheURI).Error("could not connect to cache, using in-memory")
		return cache.NewInMemoryCache()
	}
	return raw
}
