package confloader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is stripped from environment variable names.
const DefaultEnvPrefix = "APP_"

// Server holds every sessiond setting.
type Server struct {
	Port     int    `koanf:"port"`
	BaseURL  string `koanf:"base_url"`
	RedisURI string `koanf:"redis_uri"`

	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	SessionTokenPrefix  string        `koanf:"session_token_prefix"`
	SessionDurationDays int           `koanf:"session_duration_days"`
	RenewThrottle       time.Duration `koanf:"session_renew_throttle"`
	TouchUnmodified     bool          `koanf:"session_touch_unmodified"`

	LoginMaxAttempts int           `koanf:"login_max_attempts"`
	LoginWindow      time.Duration `koanf:"login_window"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	HashSecretKey string `koanf:"hash_secretkey"`

	// Remote audit log server.
	LogURI   string `koanf:"log_uri"`
	LogToken string `koanf:"log_token"`

	AuditBufferSize int  `koanf:"audit_buffer_size"`
	MetricsEnabled  bool `koanf:"metrics_enabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":                   8080,
		"base_url":               "/v1",
		"redis_uri":              "redis://localhost:6379/0",
		"mongo_database":         "app",
		"session_token_prefix":   "session:",
		"session_duration_days":  15,
		"session_renew_throttle": "5s",
		"login_max_attempts":     10,
		"login_window":           "15m",
		"log_level":              "info",
		"log_format":             "json",
		"audit_buffer_size":      1024,
		"metrics_enabled":        true,
	}
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile adds a YAML file between defaults and env.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides applies data after env. Used for CLI flags.
func WithOverrides(data map[string]any) Option {
	return func(l *Loader) {
		l.overrides = data
	}
}

// Loader merges defaults, file, env and overrides into a koanf instance.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
}

// NewLoader returns a loader with the APP_ prefix and no file.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load applies every source and decodes the result.
func (l *Loader) Load() (*Server, error) {
	if err := l.k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}
	if err := l.loadEnv(); err != nil {
		return nil, err
	}
	if len(l.overrides) > 0 {
		if err := l.k.Load(mapProvider(l.overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var s Server
	if err := l.k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	s.CORSOrigins = splitOrigins(s.CORSOrigins)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// APP_REDIS_URI -> redis_uri
func (l *Loader) loadEnv() error {
	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func splitOrigins(in []string) []string {
	var out []string
	for _, v := range in {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate checks the settings the engine config cannot.
func (s *Server) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if !strings.HasPrefix(s.BaseURL, "/") {
		return errors.New("base_url must start with '/'")
	}
	if s.SessionDurationDays < 1 {
		return errors.New("session_duration_days must be >= 1")
	}
	if (s.LogURI == "") != (s.LogToken == "") {
		return errors.New("log_uri and log_token must be set together")
	}
	return nil
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// EngineConfig maps server settings onto the engine defaults and validates
// the result.
func (s *Server) EngineConfig() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()

	duration := time.Duration(s.SessionDurationDays) * 24 * time.Hour
	cfg.Session.RedisPrefix = s.SessionTokenPrefix
	cfg.Session.MaxAge = duration
	cfg.Session.StoreTTL = duration
	cfg.Session.RenewThrottle = s.RenewThrottle
	cfg.Session.TouchUnmodified = s.TouchUnmodified

	cfg.Gate.DirectBearerPrefix = strings.TrimSuffix(s.BaseURL, "/") + "/app"

	cfg.Login.MaxAttempts = s.LoginMaxAttempts
	cfg.Login.Window = s.LoginWindow

	cfg.Password.LegacySecret = s.HashSecretKey

	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = s.AuditBufferSize

	cfg.Metrics.Enabled = s.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = s.MetricsEnabled

	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return cfg, nil
}
