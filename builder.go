package goSession

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a [Manager]. A builder can be used for a single Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	principals PrincipalProvider
	auditSink  AuditSink
	logger     *zerolog.Logger
	now        func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing native sessions. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPrincipalProvider sets how a request's principal is resolved. Defaults to
// [ContextPrincipal].
func (b *Builder) WithPrincipalProvider(p PrincipalProvider) *Builder {
	b.principals = p
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the manager logger. Defaults to a disabled logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock replaces time.Now for entry expiry and native lifetimes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
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

// Build validates the configuration and returns a ready [Manager].
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	principals := b.principals
	if principals == nil {
		principals = ContextPrincipal
	}

	store := session.NewStore(
		b.redis,
		cfg.Session.RedisPrefix,
		cfg.Session.SlidingExpiration,
		cfg.Session.JitterEnabled,
		cfg.Session.JitterRange,
	).WithClock(now)

	m := &Manager{
		config:     cfg,
		namespace:  cfg.Session.Namespace(),
		redis:      b.redis,
		store:      store,
		principals: principals,
		logger:     logger.With().Str("component", "gosession").Logger(),
		metrics:    NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		now: now,
	}

	b.built = true
	return m, nil
}
