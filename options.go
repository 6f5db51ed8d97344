package lingopref

import (
	"context"
	"net/http"

	"github.com/pitabwire/util"
	"gorm.io/gorm"

	"github.com/mzalendo/lingopref/cache"
	"github.com/mzalendo/lingopref/client"
	"github.com/mzalendo/lingopref/config"
	"github.com/mzalendo/lingopref/events"
	"github.com/mzalendo/lingopref/localization"
	"github.com/mzalendo/lingopref/store"
	"github.com/mzalendo/lingopref/workerpool"
)

// WithName specifies the name the service will utilize.
func WithName(name string) Option {
	return func(_ context.Context, s *Service) {
		s.name = name
	}
}

// WithVersion specifies the version the service will utilize.
func WithVersion(version string) Option {
	return func(_ context.Context, s *Service) {
		s.version = version
	}
}

// WithEnvironment specifies the environment the service will utilize.
func WithEnvironment(environment string) Option {
	return func(_ context.Context, s *Service) {
		s.environment = environment
	}
}

// WithLogger builds the service logger from the logging configuration, so
// LOG_LEVEL, LOG_TIME_FORMAT and LOG_COLORED take effect.
func WithLogger(opts ...util.Option) Option {
	return func(ctx context.Context, s *Service) {
		if cfg, ok := s.Config().(config.ConfigurationLogLevel); ok {
			if logLevel, err := util.ParseLevel(cfg.LoggingLevel()); err == nil {
				opts = append(opts, util.WithLogLevel(logLevel))
			}
			opts = append(opts,
				util.WithLogTimeFormat(cfg.LoggingTimeFormat()),
				util.WithLogNoColor(!cfg.LoggingColored()),
				util.WithLogStackTrace())
		}

		s.logger = util.NewLogger(ctx, opts...).WithField("service", s.name)
	}
}

// WithConfig specifies or overrides the configuration object of the service.
func WithConfig(configuration any) Option {
	return func(_ context.Context, s *Service) {
		s.configuration = configuration
	}
}

// WithCache overrides the default in-memory cache, typically with the
// Valkey or Redis implementation.
func WithCache(raw cache.RawCache) Option {
	return func(_ context.Context, s *Service) {
		s.cacheStore = raw
	}
}

// WithDatastore supplies an already opened database connection.
func WithDatastore(db *gorm.DB) Option {
	return func(_ context.Context, s *Service) {
		s.db = db
	}
}

// WithOpportunityRepository overrides the opportunity repository, mostly
// useful in tests.
func WithOpportunityRepository(repository store.OpportunityRepository) Option {
	return func(_ context.Context, s *Service) {
		s.opportunities = repository
	}
}

// WithTranslator overrides the localization manager.
func WithTranslator(translator localization.Manager) Option {
	return func(_ context.Context, s *Service) {
		s.translator = translator
	}
}

// WithWorkerPool overrides the default worker pool.
func WithWorkerPool(pool workerpool.Pool) Option {
	return func(_ context.Context, s *Service) {
		s.pool = pool
	}
}

// WithHTTPHandler overrides the default route set served by the service.
func WithHTTPHandler(handler http.Handler) Option {
	return func(_ context.Context, s *Service) {
		s.handler = handler
	}
}

// WithInvoker overrides the outbound HTTP invoker.
func WithInvoker(invoker client.Manager) Option {
	return func(_ context.Context, s *Service) {
		s.invoker = invoker
	}
}

// WithRegisterEvents registers events for the service. All events are unique
// and shouldn't share a name otherwise the last one registered takes
// precedence.
func WithRegisterEvents(evts ...events.EventI) Option {
	return func(_ context.Context, s *Service) {
		s.pendingEvents = append(s.pendingEvents, evts...)
	}
}
