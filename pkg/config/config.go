package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable the client reads.
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv  = "PHARMALINK_APP_ENV"
	EnvBaseURL = "PHARMALINK_API_BASE_URL"

	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Realtime RealtimeConfig
	Session  SessionConfig
	Redis    RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHARMALINK_APP_ENV" default:"development"`
	LogLevel     string `envconfig:"PHARMALINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMALINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"PHARMALINK_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"PHARMALINK_API_TIMEOUT" default:"30s"`
	// RefreshSkew refreshes the access token this long before its recorded
	// expiry instead of waiting for a 401.
	RefreshSkew time.Duration `envconfig:"PHARMALINK_API_REFRESH_SKEW" default:"10s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api base url must be http(s), got %q", a.BaseURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	return nil
}

// Origin strips the /api path from the base URL; the realtime channel
// connects to the backend's root origin.
func (a APIConfig) Origin() string {
	return strings.TrimSuffix(strings.TrimSuffix(a.BaseURL, "/"), "/api")
}

type RealtimeConfig struct {
	Enabled           bool          `envconfig:"PHARMALINK_REALTIME_ENABLED" default:"true"`
	HandshakeTimeout  time.Duration `envconfig:"PHARMALINK_REALTIME_HANDSHAKE_TIMEOUT" default:"10s"`
	HeartbeatInterval time.Duration `envconfig:"PHARMALINK_REALTIME_HEARTBEAT_INTERVAL" default:"30s"`
}

type SessionConfig struct {
	Backend  string `envconfig:"PHARMALINK_SESSION_BACKEND" default:"file"`
	FilePath string `envconfig:"PHARMALINK_SESSION_FILE" default:".pharmalink/session.json"`
}

func (s SessionConfig) validate() error {
	switch s.Backend {
	case SessionBackendFile, SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", s.Backend)
	}
	if s.Backend == SessionBackendFile && strings.TrimSpace(s.FilePath) == "" {
		return fmt.Errorf("session file path is required for the file backend")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMALINK_REDIS_URL"`
	Address      string        `envconfig:"PHARMALINK_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMALINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMALINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMALINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMALINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMALINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMALINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMALINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}
