// Package lingopref wires the language preference selector, progress
// tracking and lesson search behind one service lifecycle.
package lingopref

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pitabwire/util"
	"gorm.io/gorm"

	"github.com/mzalendo/lingopref/cache"
	"github.com/mzalendo/lingopref/client"
	"github.com/mzalendo/lingopref/config"
	"github.com/mzalendo/lingopref/events"
	"github.com/mzalendo/lingopref/localization"
	"github.com/mzalendo/lingopref/preference"
	"github.com/mzalendo/lingopref/progress"
	"github.com/mzalendo/lingopref/queue"
	"github.com/mzalendo/lingopref/search"
	"github.com/mzalendo/lingopref/store"
	"github.com/mzalendo/lingopref/workerpool"
)

type contextKey string

func (c contextKey) String() string {
	return "lingopref/" + string(c)
}

const (
	ctxKeyService = contextKey("serviceKey")

	defaultHTTPReadTimeoutSeconds  = 15
	defaultHTTPWriteTimeoutSeconds = 15
	defaultHTTPIdleTimeoutSeconds  = 60
)

// Service holds together all application components. An instance of this
// type is scoped to stay for the lifetime of the application and is pushed
// and pulled from contexts to make it easy to pass around.
type Service struct {
	name        string
	version     string
	environment string

	logger        *util.LogEntry
	configuration any

	pool         workerpool.Pool
	queueManager queue.Manager
	eventManager events.Manager

	cacheStore cache.RawCache
	db         *gorm.DB

	translator   localization.Manager
	selector     *preference.Selector
	tracker      *progress.Tracker
	invoker      client.Manager
	searchClient *search.Client

	opportunities store.OpportunityRepository
	pendingEvents []events.EventI

	handler         http.Handler
	httpServer      *http.Server
	healthCheckers  []Checker
	healthCheckPath string

	cancelFunc        context.CancelFunc
	errorChannel      chan error
	errorChannelMutex sync.Mutex
	startup           func(ctx context.Context, s *Service)
	cleanup           func(ctx context.Context)
	startOnce         sync.Once
	stopMutex         sync.Mutex
}

// Option configures the service during construction.
type Option func(ctx context.Context, s *Service)

// NewService creates a new instance of Service with the name and supplied options.
// Internally it calls NewServiceWithContext and creates a background context for use.
func NewService(name string, opts ...Option) (context.Context, *Service) {
	return NewServiceWithContext(context.Background(), name, opts...)
}

// NewServiceWithContext creates a new instance of Service with context, name
// and supplied options.
func NewServiceWithContext(ctx context.Context, name string, opts ...Option) (context.Context, *Service) {
	// Create a new context that listens for OS signals for graceful shutdown.
	ctx, signalCancelFunc := signal.NotifyContext(ctx,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	defaultLogger := util.Log(ctx)
	ctx = util.ContextWithLogger(ctx, defaultLogger)

	defaultCfg, _ := config.FromEnv[config.ConfigurationDefault]()

	pool, err := workerpool.New(poolOptionsFromConfig(&defaultCfg))
	if err != nil {
		defaultLogger.WithError(err).Panic("could not create a default worker pool")
	}

	service := &Service{
		name:          name,
		cancelFunc:    signalCancelFunc,
		errorChannel:  make(chan error, 1),
		logger:        defaultLogger,
		configuration: &defaultCfg,
		pool:          pool,
		cacheStore:    cache.NewInMemoryCache(),
	}
	service.queueManager = queue.NewManager(pool)

	if defaultCfg.ServiceName != "" {
		opts = append(opts, WithName(defaultCfg.ServiceName))
	}
	if defaultCfg.ServiceEnvironment != "" {
		opts = append(opts, WithEnvironment(defaultCfg.ServiceEnvironment))
	}
	if defaultCfg.ServiceVersion != "" {
		opts = append(opts, WithVersion(defaultCfg.ServiceVersion))
	}

	// Last so the logger reflects whatever configuration the options set.
	opts = append(opts, WithLogger())

	service.Init(ctx, opts...)

	ctx = SvcToContext(ctx, service)
	ctx = config.ToContext(ctx, service.Config())
	ctx = util.ContextWithLogger(ctx, service.logger)
	return ctx, service
}

func poolOptionsFromConfig(cfg *config.ConfigurationDefault) *workerpool.Options {
	opts := workerpool.DefaultOptions()
	if cfg.WorkerPoolCapacity > 0 {
		opts.Capacity = cfg.WorkerPoolCapacity
	}
	if expiry, err := time.ParseDuration(cfg.WorkerPoolExpiryDuration); err == nil && expiry > 0 {
		opts.ExpiryDuration = expiry
	}
	return opts
}

// SvcToContext pushes a service instance into the supplied context for easier propagation.
func SvcToContext(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// Svc obtains a service instance being propagated through the context.
func Svc(ctx context.Context) *Service {
	service, ok := ctx.Value(ctxKeyService).(*Service)
	if !ok {
		return nil
	}
	return service
}

// Name gets the name of the service. Its the first argument used when NewService is called.
func (s *Service) Name() string {
	return s.name
}

// Version gets the release version of the service.
func (s *Service) Version() string {
	return s.version
}

// Environment gets the runtime environment of the service.
func (s *Service) Environment() string {
	return s.environment
}

// Config returns the configuration object supplied at construction.
func (s *Service) Config() any {
	return s.configuration
}

// Log returns a request scoped log entry on the configured service logger.
func (s *Service) Log(ctx context.Context) *util.LogEntry {
	return s.logger.WithContext(ctx)
}

// SLog exposes the underlying slog logger.
func (s *Service) SLog(ctx context.Context) *slog.Logger {
	return s.Log(ctx).SLog()
}

// Init evaluates the options provided as arguments and supplies them to the service object.
func (s *Service) Init(ctx context.Context, opts ...Option) {
	for _, opt := range opts {
		opt(ctx, s)
	}
}

// Selector exposes the preference selector once Setup has run.
func (s *Service) Selector() *preference.Selector {
	return s.selector
}

// Tracker exposes the progress tracker once Setup has run.
func (s *Service) Tracker() *progress.Tracker {
	return s.tracker
}

// SearchClient exposes the search client once Setup has run.
func (s *Service) SearchClient() *search.Client {
	return s.searchClient
}

// Translator exposes the localization manager once Setup has run.
func (s *Service) Translator() localization.Manager {
	return s.translator
}

// Events exposes the event manager once Setup has run.
func (s *Service) Events() events.Manager {
	return s.eventManager
}

// Queue exposes the queue manager.
func (s *Service) Queue() queue.Manager {
	return s.queueManager
}

// AddPreStartMethod adds user defined functions that run just before the
// service starts receiving requests but is fully initialized.
func (s *Service) AddPreStartMethod(f func(ctx context.Context, s *Service)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	if s.startup == nil {
		s.startup = f
		return
	}

	old := s.startup
	s.startup = func(ctx context.Context, st *Service) { old(ctx, st); f(ctx, st) }
}

// AddCleanupMethod adds user defined functions to be run just before
// completely stopping the service.
func (s *Service) AddCleanupMethod(f func(ctx context.Context)) {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()

	if s.cleanup == nil {
		s.cleanup = f
		return
	}

	old := s.cleanup
	s.cleanup = func(ctx context.Context) { f(ctx); old(ctx) }
}

// AddHealthCheck adds health checks that are run to ascertain the system is ok.
func (s *Service) AddHealthCheck(checker Checker) {
	s.healthCheckers = append(s.healthCheckers, checker)
}

// Setup initializes the domain components from configuration: the event
// queue, the selector, the progress tracker and the search client. It is
// called by Run and is safe to call ahead of it in tests.
func (s *Service) Setup(ctx context.Context) error {
	var setupErr error
	s.startOnce.Do(func() {
		setupErr = s.setup(ctx)
	})
	return setupErr
}

func (s *Service) setup(ctx context.Context) error {
	cfg, ok := s.Config().(*config.ConfigurationDefault)
	if !ok {
		cfg = &config.ConfigurationDefault{}
		if err := config.FillEnv(cfg); err != nil {
			return err
		}
	}

	if s.translator == nil {
		locales := strings.Split(cfg.TranslationLocales, ",")
		s.translator = localization.NewManager(cfg.TranslationsFolder, locales...)
	}

	if s.eventManager == nil {
		s.eventManager = events.NewManager(ctx, s.queueManager, cfg.EventsQueueName)
	}
	for _, event := range s.pendingEvents {
		s.eventManager.Add(event)
	}
	s.pendingEvents = nil

	if err := s.queueManager.AddPublisher(ctx, cfg.EventsQueueName, cfg.EventsQueueURL); err != nil {
		return err
	}
	if err := s.queueManager.AddSubscriber(ctx, cfg.EventsQueueName, cfg.EventsQueueURL, s.eventManager.Handler()); err != nil {
		return err
	}

	if s.selector == nil {
		selectionMaxAge, _ := time.ParseDuration(cfg.SelectionMaxAge)
		s.selector = preference.NewSelector(s.cacheStore, s.eventManager,
			preference.WithDefaultLanguage(cfg.DefaultLanguageCode),
			preference.WithSelectionMaxAge(selectionMaxAge),
		)
	}

	if s.db == nil && len(cfg.DatabasePrimaryURL) > 0 {
		db, err := store.Open(ctx, cfg.DatabasePrimaryURL[0])
		if err != nil {
			return err
		}
		s.db = db

		if cfg.CanDatabaseMigrate() {
			if err = store.Migrate(ctx, s.db); err != nil {
				return err
			}
		}
	}

	if s.opportunities == nil && s.db != nil {
		s.opportunities = store.NewOpportunityRepository(s.db)
	}

	if s.tracker == nil && s.opportunities != nil {
		s.tracker = progress.NewTracker(s.opportunities, s.cacheStore, s.translator)
		s.eventManager.Add(&progress.RefreshEvent{Tracker: s.tracker})
	}

	if s.invoker == nil {
		s.invoker = client.NewManager(ctx)
	}

	if s.searchClient == nil && cfg.SearchURLTemplate != "" {
		searchClient, err := search.NewClient(s.invoker, cfg.SearchURLTemplate)
		if err != nil {
			return err
		}
		s.searchClient = searchClient
	}

	if s.handler == nil {
		s.handler = s.Routes()
	}

	return nil
}

// Run keeps the service useful by handling incoming requests.
func (s *Service) Run(ctx context.Context, address string) error {
	if err := s.Setup(ctx); err != nil {
		return err
	}

	if address == "" {
		if cfg, ok := s.Config().(config.ConfigurationPorts); ok {
			address = cfg.HTTPPort()
		}
	}

	go func(ctx context.Context) {
		srvErr := s.initServer(ctx, address)
		s.sendStopError(ctx, srvErr)
	}(ctx)

	if s.startup != nil {
		s.startup(ctx, s)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-s.errorChannel:
		if err != nil {
			s.Log(ctx).WithError(err).Error("system exit in error")
			s.Stop(ctx)
		} else {
			s.Log(ctx).Debug("system exit")
		}
		return err
	}
}

func (s *Service) initServer(ctx context.Context, address string) error {
	if s.healthCheckPath == "" {
		s.healthCheckPath = "/healthz"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.healthCheckPath, s.HandleHealth)
	mux.Handle("/", s.handler)

	s.httpServer = &http.Server{
		Addr:    address,
		Handler: mux,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadTimeout:  defaultHTTPReadTimeoutSeconds * time.Second,
		WriteTimeout: defaultHTTPWriteTimeoutSeconds * time.Second,
		IdleTimeout:  defaultHTTPIdleTimeoutSeconds * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Stop is used to gracefully run clean up methods ensuring all requests that
// were being handled are completed well without interruptions.
func (s *Service) Stop(ctx context.Context) {
	if !s.stopMutex.TryLock() {
		return
	}
	defer s.stopMutex.Unlock()

	s.Log(ctx).Info("service stopping")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.Log(ctx).WithError(err).Error("could not drain http server")
		}
		cancel()
	}

	if s.cleanup != nil {
		s.cleanup(ctx)
	}

	if err := s.queueManager.Stop(ctx); err != nil {
		s.Log(ctx).WithError(err).Error("could not stop queues")
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.Close(); err != nil {
			s.Log(ctx).WithError(err).Error("could not close cache")
		}
	}

	if s.pool != nil {
		s.logger.Info("shutting down worker pool")
		s.pool.Shutdown()
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.errorChannelMutex.Lock()
	select {
	case _, ok := <-s.errorChannel:
		if !ok {
			s.errorChannelMutex.Unlock()
			return
		}
	default:
	}
	close(s.errorChannel)
	s.errorChannelMutex.Unlock()
}

func (s *Service) sendStopError(ctx context.Context, err error) {
	s.errorChannelMutex.Lock()
	defer s.errorChannelMutex.Unlock()

	select {
	case <-ctx.Done():
		return
	case <-s.errorChannel:
		// channel is already closed hence avoid
		return
	default:
		s.errorChannel <- err
	}
}
