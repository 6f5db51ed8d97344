package config

import (
	"context"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "lingopref/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds service configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts service configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

// ConfigurationDefault is the environment driven configuration for the
// preference service. Any subset of its getter interfaces below can be
// implemented by a custom configuration object instead.
type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	ServiceName        string `envDefault:"lingopref" env:"SERVICE_NAME"        yaml:"service_name"`
	ServiceEnvironment string `envDefault:""          env:"SERVICE_ENVIRONMENT" yaml:"service_environment"`
	ServiceVersion     string `envDefault:""          env:"SERVICE_VERSION"     yaml:"service_version"`

	HTTPServerPort string `envDefault:":8080" env:"HTTP_PORT" yaml:"http_server_port"`

	CacheURI    string `envDefault:""   env:"CACHE_URI"     yaml:"cache_uri"`
	CacheMaxAge string `envDefault:"0s" env:"CACHE_MAX_AGE" yaml:"cache_max_age"`

	DatabasePrimaryURL []string `env:"DATABASE_URL" yaml:"database_url"`
	DatabaseMigrate    bool     `env:"DO_MIGRATION" yaml:"do_migration" envDefault:"false"`

	EventsQueueName string `envDefault:"lingopref.events.internal_._queue"       env:"EVENTS_QUEUE_NAME" yaml:"events_queue_name"`
	EventsQueueURL  string `envDefault:"mem://lingopref.events.internal_._queue" env:"EVENTS_QUEUE_URL"  yaml:"events_queue_url"`

	// Worker pool settings
	WorkerPoolCapacity       int    `envDefault:"100" env:"WORKER_POOL_CAPACITY"        yaml:"worker_pool_capacity"`
	WorkerPoolExpiryDuration string `envDefault:"1s"  env:"WORKER_POOL_EXPIRY_DURATION" yaml:"worker_pool_expiry_duration"`

	DefaultLanguageCode string `envDefault:"en"           env:"DEFAULT_LANGUAGE_CODE" yaml:"default_language_code"`
	SelectionMaxAge     string `envDefault:"0s"           env:"SELECTION_MAX_AGE"     yaml:"selection_max_age"`
	TranslationsFolder  string `envDefault:"translations" env:"TRANSLATIONS_FOLDER"   yaml:"translations_folder"`
	TranslationLocales  string `envDefault:"en,sw"        env:"TRANSLATION_LOCALES"   yaml:"translation_locales"`

	SearchURLTemplate string `envDefault:"" env:"SEARCH_URL_TEMPLATE" yaml:"search_url_template"`
}

// ConfigurationLogLevel is a getter interface for the logging setup.
type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingColored() bool
}

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

// ConfigurationPorts is a getter interface for server ports.
type ConfigurationPorts interface {
	HTTPPort() string
}

func (c *ConfigurationDefault) HTTPPort() string {
	return c.HTTPServerPort
}

// ConfigurationEvents is a getter interface for the events queue.
type ConfigurationEvents interface {
	GetEventsQueueName() string
	GetEventsQueueURL() string
}

func (c *ConfigurationDefault) GetEventsQueueName() string {
	return c.EventsQueueName
}

func (c *ConfigurationDefault) GetEventsQueueURL() string {
	return c.EventsQueueURL
}

// ConfigurationCache is a getter interface for the cache connection.
type ConfigurationCache interface {
	GetCacheURI() string
	GetCacheMaxAge() string
}

func (c *ConfigurationDefault) GetCacheURI() string {
	return c.CacheURI
}

func (c *ConfigurationDefault) GetCacheMaxAge() string {
	return c.CacheMaxAge
}

// ConfigurationSelection is a getter interface for selection defaults.
type ConfigurationSelection interface {
	GetDefaultLanguageCode() string
}

func (c *ConfigurationDefault) GetDefaultLanguageCode() string {
	return c.DefaultLanguageCode
}

// ConfigurationSearch is a getter interface for the search endpoint.
type ConfigurationSearch interface {
	GetSearchURLTemplate() string
}

func (c *ConfigurationDefault) GetSearchURLTemplate() string {
	return c.SearchURLTemplate
}

// ConfigurationDatabase is a getter interface for the datastore connection.
type ConfigurationDatabase interface {
	GetDatabasePrimaryURL() []string
	CanDatabaseMigrate() bool
}

func (c *ConfigurationDefault) GetDatabasePrimaryURL() []string {
	return c.DatabasePrimaryURL
}

func (c *ConfigurationDefault) CanDatabaseMigrate() bool {
	return c.DatabaseMigrate
}
