package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory account.Directory
	auditSink AuditSink
	logger    zerolog.Logger

	clock       func() time.Time
	tokenSource func() (string, error)

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the record store backend. The Engine does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserDirectory(dir account.Directory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink sets the sink behind the audit dispatcher. It only takes effect
// when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the fallback logger for requests that carry no context logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source of the store, middleware and audit.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithTokenSource overrides session token generation.
func (b *Builder) WithTokenSource(gen func() (string, error)) *Builder {
	b.tokenSource = gen
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	var storeOpts []session.StoreOption
	if b.clock != nil {
		storeOpts = append(storeOpts, session.WithClock(b.clock))
	}
	store := session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.StoreTTL, storeOpts...)

	metrics := NewMetrics(cfg.Metrics)
	observer := metricsObserver{m: metrics}

	// -------- MIDDLEWARE --------
	lifecycleOpts := []middleware.Option{
		middleware.WithRenewThrottle(cfg.Session.RenewThrottle),
		middleware.WithTouchUnmodified(cfg.Session.TouchUnmodified),
		middleware.WithLogger(b.logger),
		middleware.WithObserver(observer),
		middleware.WithClock(b.clock),
		middleware.WithTokenSource(b.tokenSource),
	}
	lifecycle := middleware.NewLifecycle(store, cfg.Session.MaxAge, lifecycleOpts...)

	renew := middleware.NewRenewSignal(
		middleware.WithRenewHeader(cfg.Renew.Header),
		middleware.WithUpdatedAtHeaders(cfg.Renew.UpdatedAtHeaders...),
		middleware.WithRenewObserver(observer),
	)

	gate := middleware.NewGate(store,
		middleware.WithDirectBearerPrefix(cfg.Gate.DirectBearerPrefix),
		middleware.WithExpiredHeader(cfg.Gate.ExpiredHeader),
		middleware.WithGateLogger(b.logger),
		middleware.WithGateObserver(observer),
	)

	// -------- CREDENTIALS --------
	hasher, err := password.New(password.Config{
		Memory:       cfg.Password.Memory,
		Time:         cfg.Password.Time,
		Parallelism:  cfg.Password.Parallelism,
		SaltLength:   cfg.Password.SaltLength,
		KeyLength:    cfg.Password.KeyLength,
		MinLength:    cfg.Password.MinLength,
		LegacySecret: cfg.Password.LegacySecret,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		store:     store,
		lifecycle: lifecycle,
		renew:     renew,
		gate:      gate,
		directory: b.directory,
		hasher:    hasher,
		metrics:   metrics,
		logger:    b.logger,
		clock:     b.clock,
	}
	engine.limiter = rate.New(b.redis, rate.Config{
		MaxAttempts:  cfg.Login.MaxAttempts,
		Window:       cfg.Login.Window,
		ThrottleByIP: cfg.Login.ThrottleByIP,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		SinkTimeout: cfg.Audit.SinkTimeout,
		Logger:      b.logger.With().Str("component", "audit").Logger(),
	}, b.auditSink)
	engine.initFlows()

	b.built = true
	return engine, nil
}
