package sessionauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/refresh"
)

// Builder assembles an Engine. A Builder is single-use: Build may succeed
// only once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  refresh.Store

	identities IdentityProvider
	auditSink  AuditSink
	logger     *slog.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects the Redis refresh store. Ignored when WithRefreshStore
// is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore supplies any refresh.Store implementation. The store is
// responsible for enforcing Config.Store.Retention.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identities = p
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the clock used to stamp and check token times.
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

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.identities == nil {
		return nil, errors.New("identity provider required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("refresh store or redis client required")
		}
		store = refresh.NewRedisStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.Retention)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	access, err := jwt.NewManager(jwt.Config{
		Use:           jwt.UseAccess,
		TTL:           cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.AccessPrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.AccessPublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	refreshCodec, err := jwt.NewManager(jwt.Config{
		Use:           jwt.UseRefresh,
		TTL:           cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.RefreshPrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.RefreshPublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		access:     access,
		refresh:    refreshCodec,
		store:      store,
		identities: b.identities,
		logger:     logger.With(slog.String("component", "sessionauth")),
		now:        now,
		metrics:    NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	lookup := engine.lookupSubject
	engine.flows = flows.New(flows.Deps{
		Issue: flows.IssueDeps{
			Access:  access,
			Refresh: refreshCodec,
			Store:   store,
		},
		Refresh: flows.RefreshDeps{
			Access:          access,
			Refresh:         refreshCodec,
			Store:           store,
			LookupSubject:   lookup,
			SubjectNotFound: ErrSubjectNotFound,
		},
		Revoke: flows.RevokeDeps{
			Refresh: refreshCodec,
			Store:   store,
		},
		Authorize: flows.AuthorizeDeps{
			Access: access,
		},
	})

	for _, w := range cfg.Lint() {
		engine.logger.Warn("config lint", slog.String("warning", w))
	}

	b.built = true
	return engine, nil
}
