// Package config loads postboard's configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// POSTBOARD_* environment variables. Secret fields may hold ${VAR}
// expansions or secretref:env:/secretref:file: references; they are
// resolved after loading.
package config

import (
	"time"

	"github.com/jonwraymond/postboard/auth"
	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/queries"
	"github.com/jonwraymond/postboard/resilience"
	"github.com/jonwraymond/postboard/store"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Auth      AuthConfig      `koanf:"auth"`
	Observe   ObserveConfig   `koanf:"observe"`
	Secrets   SecretsConfig   `koanf:"secrets"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins" validate:"dive,required"`
}

// StoreConfig configures the badger store.
type StoreConfig struct {
	Path           string        `koanf:"path" validate:"required_unless=InMemory true"`
	InMemory       bool          `koanf:"in_memory"`
	EncryptionKey  string        `koanf:"encryption_key" validate:"omitempty,min=16,max=32"`
	GCInterval     time.Duration `koanf:"gc_interval" validate:"gte=0"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio" validate:"gt=0,lt=1"`
}

// CacheConfig configures the data cache and the route-level path cache.
type CacheConfig struct {
	MaxEntries    int              `koanf:"max_entries" validate:"gte=0"`
	DefaultTTL    time.Duration    `koanf:"default_ttl" validate:"gte=0"`
	MaxTTL        time.Duration    `koanf:"max_ttl" validate:"gte=0"`
	PurgeInterval time.Duration    `koanf:"purge_interval" validate:"gt=0"`
	PathTTL       time.Duration    `koanf:"path_ttl" validate:"gte=0"`
	Revalidate    RevalidateConfig `koanf:"revalidate"`
}

// RevalidateConfig holds the per-query revalidate intervals.
type RevalidateConfig struct {
	Posts       time.Duration `koanf:"posts" validate:"gt=0"`
	PostDetail  time.Duration `koanf:"post_detail" validate:"gt=0"`
	TopComments time.Duration `koanf:"top_comments" validate:"gt=0"`
	Comments    time.Duration `koanf:"comments" validate:"gt=0"`
	User        time.Duration `koanf:"user" validate:"gt=0"`
	Users       time.Duration `koanf:"users" validate:"gt=0"`
}

// LimitConfig is one fixed-window limiter.
type LimitConfig struct {
	Window      time.Duration `koanf:"window" validate:"gt=0"`
	MaxRequests int           `koanf:"max_requests" validate:"gt=0"`
}

// RateLimitConfig configures the api, auth and admin limiters.
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	API             LimitConfig   `koanf:"api"`
	Auth            LimitConfig   `koanf:"auth"`
	Admin           LimitConfig   `koanf:"admin"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`
}

// AuthConfig configures session token verification.
type AuthConfig struct {
	Secret     string        `koanf:"secret" validate:"required,min=32"`
	Issuer     string        `koanf:"issuer"`
	Audience   string        `koanf:"audience"`
	CookieName string        `koanf:"cookie_name"`
	Leeway     time.Duration `koanf:"leeway" validate:"gte=0"`
	BcryptCost int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	ServiceName     string  `koanf:"service_name"`
	LogLevel        string  `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string  `koanf:"log_format" validate:"oneof=json console"`
	TracingExporter string  `koanf:"tracing_exporter" validate:"oneof=otlp jaeger stdout none"`
	SamplePct       float64 `koanf:"sample_pct" validate:"gte=0,lte=1"`
	MetricsExporter string  `koanf:"metrics_exporter" validate:"oneof=otlp prometheus stdout none"`
}

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	// Dir is the base directory of secretref:file: references.
	Dir string `koanf:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rev := queries.DefaultRevalidate()
	lim := resilience.DefaultLimitersConfig()

	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Store: StoreConfig{
			Path:           "data",
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Cache: CacheConfig{
			MaxEntries:    10000,
			DefaultTTL:    5 * time.Minute,
			MaxTTL:        time.Hour,
			PurgeInterval: time.Minute,
			PathTTL:       time.Minute,
			Revalidate: RevalidateConfig{
				Posts:       rev.Posts,
				PostDetail:  rev.PostDetail,
				TopComments: rev.TopComments,
				Comments:    rev.Comments,
				User:        rev.User,
				Users:       rev.Users,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			API:             LimitConfig{Window: lim.API.Window, MaxRequests: lim.API.MaxRequests},
			Auth:            LimitConfig{Window: lim.Auth.Window, MaxRequests: lim.Auth.MaxRequests},
			Admin:           LimitConfig{Window: lim.Admin.Window, MaxRequests: lim.Admin.MaxRequests},
			CleanupInterval: 5 * time.Minute,
		},
		Auth: AuthConfig{
			CookieName: "session-token",
			Leeway:     30 * time.Second,
			BcryptCost: 12,
		},
		Observe: ObserveConfig{
			ServiceName:     "postboard",
			LogLevel:        "info",
			LogFormat:       "json",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "prometheus",
		},
		Secrets: SecretsConfig{},
	}
}

// Limiters returns the rate limiter configuration.
func (c *Config) Limiters() resilience.LimitersConfig {
	return resilience.LimitersConfig{
		API:   resilience.RateLimiterConfig{Window: c.RateLimit.API.Window, MaxRequests: c.RateLimit.API.MaxRequests},
		Auth:  resilience.RateLimiterConfig{Window: c.RateLimit.Auth.Window, MaxRequests: c.RateLimit.Auth.MaxRequests},
		Admin: resilience.RateLimiterConfig{Window: c.RateLimit.Admin.Window, MaxRequests: c.RateLimit.Admin.MaxRequests},
	}
}

// Revalidate returns the query revalidate intervals.
func (c *Config) Revalidate() queries.Revalidate {
	r := c.Cache.Revalidate
	return queries.Revalidate{
		Posts:       r.Posts,
		PostDetail:  r.PostDetail,
		TopComments: r.TopComments,
		Comments:    r.Comments,
		User:        r.User,
		Users:       r.Users,
	}
}

// StoreOptions returns the badger store options.
func (c *Config) StoreOptions(log observe.Logger) store.Options {
	opts := store.Options{
		Path:     c.Store.Path,
		InMemory: c.Store.InMemory,
		Logger:   log,
	}
	if c.Store.EncryptionKey != "" {
		opts.EncryptionKey = []byte(c.Store.EncryptionKey)
	}
	return opts
}

// JWT returns the session token verifier configuration.
func (c *Config) JWT() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:     []byte(c.Auth.Secret),
		Issuer:     c.Auth.Issuer,
		Audience:   c.Auth.Audience,
		CookieName: c.Auth.CookieName,
		Leeway:     c.Auth.Leeway,
	}
}

// Observer returns the telemetry configuration.
func (c *Config) Observer(version string) observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingExporter != "none",
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsExporter != "none",
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
			Format:  o.LogFormat,
		},
	}
}
