// Package config provides centralized configuration management for the service.
// Values come from environment variables (optionally seeded from a .env file),
// fall back to tag defaults, and are validated on startup so misconfiguration
// fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Report   ReportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" default:"3002"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds every request except batch uploads, which use Upload.Timeout.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL accepts DATABASE_URL or DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies the embedded schema migrations on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// UploadConfig holds batch upload settings.
type UploadConfig struct {
	// MaxFileSize is the per-file limit in bytes (default: 10MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// FilesPerBatch is the exact number of files a batch must contain; 0 accepts any count.
	FilesPerBatch int `env:"UPLOAD_FILES_PER_BATCH" default:"4"`

	// FileWorkers bounds how many files of one batch are decoded in parallel.
	FileWorkers int `env:"UPLOAD_FILE_WORKERS" default:"4"`

	// MaxConcurrent is the number of batches processed at the same time.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a batch waits for a processing slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single batch end to end.
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// ReportConfig holds dashboard and listing settings.
type ReportConfig struct {
	StatsDays       int `env:"REPORT_STATS_DAYS" default:"7"`
	DefaultPageSize int `env:"REPORT_DEFAULT_PAGE_SIZE" default:"50"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
	UploadLimit       int  `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces the X-API-Key header on /api routes.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// CacheConfig holds the Redis stats cache settings. An empty RedisURL
// disables caching.
type CacheConfig struct {
	RedisURL    string        `env:"REDIS_URL"`
	TTL         time.Duration `env:"CACHE_TTL" default:"5m"`
	KeyPrefix   string        `env:"CACHE_KEY_PREFIX" default:"nicvalidator:"`
	PoolSize    int           `env:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis URL is configured.
func (c *CacheConfig) Enabled() bool {
	return c.RedisURL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
