package goSession

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
)

// Config is the complete Engine configuration. Start from [DefaultConfig].
type Config struct {
	Session  SessionConfig
	Renew    RenewConfig
	Gate     GateConfig
	Login    LoginConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls record storage and sliding renewal.
type SessionConfig struct {
	RedisPrefix string
	// MaxAge is the sliding window applied on each renewal.
	MaxAge time.Duration
	// StoreTTL is the TTL used for records that carry no expiry.
	StoreTTL time.Duration
	// RenewThrottle is the minimum elapsed time between renewals.
	RenewThrottle time.Duration
	// TouchUnmodified refreshes the key TTL for unchanged records instead of
	// skipping the store entirely.
	TouchUnmodified bool
}

/*
====================================
RENEW SIGNAL CONFIG
====================================
*/

// RenewConfig controls the staleness signal.
type RenewConfig struct {
	Header string
	// UpdatedAtHeaders are read in order; the first non-empty one wins.
	UpdatedAtHeaders []string
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig controls the authentication gate.
type GateConfig struct {
	ExpiredHeader      string
	DirectBearerPrefix string
}

/*
====================================
LOGIN THROTTLE CONFIG
====================================
*/

// LoginConfig controls the failed-login throttle. MaxAttempts 0 disables it.
type LoginConfig struct {
	MaxAttempts  int
	Window       time.Duration
	ThrottleByIP bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	// LegacySecret verifies HMAC-SHA256 hex digests from earlier deployments.
	LegacySecret   string
	UpgradeOnLogin bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	// SinkTimeout bounds each sink delivery. Zero disables the deadline.
	SinkTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: 15-day sessions with a 5s
// renewal throttle, the RENEW_USER and SESSION_EXPIRED headers and a
// direct-bearer prefix of /v1/app.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:   session.DefaultPrefix,
			MaxAge:        middleware.DefaultMaxAge,
			StoreTTL:      session.DefaultTTL,
			RenewThrottle: middleware.DefaultRenewThrottle,
		},
		Renew: RenewConfig{
			Header:           middleware.DefaultRenewHeader,
			UpdatedAtHeaders: []string{middleware.DefaultUpdatedAtHeader, middleware.LegacyUpdatedAtHeader},
		},
		Gate: GateConfig{
			ExpiredHeader:      middleware.DefaultExpiredHeader,
			DirectBearerPrefix: middleware.DefaultDirectBearerPrefix,
		},
		Login: LoginConfig{
			MaxAttempts:  10,
			Window:       15 * time.Minute,
			ThrottleByIP: false,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Renew.UpdatedAtHeaders = slices.Clone(cfg.Renew.UpdatedAtHeaders)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.MaxAge < time.Second {
		return errors.New("Session MaxAge must be >= 1s")
	}
	if c.Session.StoreTTL < time.Second {
		return errors.New("Session StoreTTL must be >= 1s")
	}
	if c.Session.RenewThrottle < 0 {
		return errors.New("Session RenewThrottle must be >= 0")
	}
	if c.Session.RenewThrottle >= c.Session.MaxAge {
		return errors.New("Session RenewThrottle must be < MaxAge")
	}

	// Headers
	if !validHeaderName(c.Renew.Header) {
		return errors.New("Renew Header is not a valid header name")
	}
	if len(c.Renew.UpdatedAtHeaders) == 0 {
		return errors.New("Renew UpdatedAtHeaders must not be empty")
	}
	for _, h := range c.Renew.UpdatedAtHeaders {
		if !validHeaderName(h) {
			return errors.New("Renew UpdatedAtHeaders contains an invalid header name")
		}
	}
	if !validHeaderName(c.Gate.ExpiredHeader) {
		return errors.New("Gate ExpiredHeader is not a valid header name")
	}
	if c.Gate.DirectBearerPrefix != "" && !strings.HasPrefix(c.Gate.DirectBearerPrefix, "/") {
		return errors.New("Gate DirectBearerPrefix must start with '/'")
	}

	// Login throttle
	if c.Login.MaxAttempts < 0 {
		return errors.New("Login MaxAttempts must be >= 0")
	}
	if c.Login.MaxAttempts > 0 && c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0 when MaxAttempts is set")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.SinkTimeout < 0 {
		return errors.New("Audit SinkTimeout must be >= 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f || c == ':' {
			return false
		}
	}
	return true
}
