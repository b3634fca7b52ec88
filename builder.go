package goSession

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/routes"
	"github.com/MrEthical07/goSession/session"
)

// Builder assembles a [Client]. Every collaborator is optional; Build fills
// in the shipped implementation for anything not supplied.
//
// Builder instances are single-use: a second Build returns ErrBuilderUsed.
type Builder struct {
	config Config
	store  kv.Store
	redis  redis.UniversalClient

	navigator      Navigator
	notifier       pipeline.Notifier
	routes         session.RouteRegistry
	httpClient     *http.Client
	auditSink      AuditSink
	tracerProvider trace.TracerProvider

	built bool
}

// New returns a builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore injects the durable store. It takes precedence over
// Config.Storage and is not closed by Client.Close.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithRedis selects the Redis backend on an existing client. The client is
// shared and not closed by Client.Close.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	b.config.Storage.Backend = StorageRedis
	return b
}

// WithNavigator sets where the expiry reaction and SignOut navigate.
// Defaults to a fresh routes.History.
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithNotifier sets the sink for user-visible notices. Defaults to logging
// them at warn level.
func (b *Builder) WithNotifier(n pipeline.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRouteRegistry sets the route table FetchMenu registers into. Defaults
// to a routes.Registry.
func (b *Builder) WithRouteRegistry(r session.RouteRegistry) *Builder {
	b.routes = r
	return b
}

// WithHTTPClient sets the client used for calls. It is copied; its
// Transport is wrapped, not replaced.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithAuditSink enables audit events and delivers them to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the structured logger shared by every component.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// WithTracerProvider sets the provider for per-call client spans.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMetricsEnabled toggles in-process counters and the latency histogram.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the config, opens or adopts the durable store, restores
// the session from it and wires the pipeline.
//
//	Performance: one durable read per persisted key.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	durable, owned, err := b.openStore(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:    cfg,
		logger:    logger.With("component", "client"),
		durable:   durable,
		ownsStore: owned,
		metrics:   NewMetrics(cfg.Metrics),
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink, logger.With("component", "audit")),
	}
	fail := func(err error) (*Client, error) {
		c.audit.Close()
		if owned {
			_ = durable.Close()
		}
		return nil, err
	}

	c.routes = b.routes
	if c.routes == nil {
		c.routes = routes.NewRegistry(routes.RegistryOptions{
			LayoutRoute: cfg.Session.LayoutRoute,
			Logger:      logger,
		})
	}
	c.navigator = b.navigator
	if c.navigator == nil {
		c.navigator = routes.NewHistory("")
	}

	// -------- PIPELINE --------
	c.guard = pipeline.NewExpiryGuard(cfg.Guard.ResetDelay, c.onSessionExpired)
	p, err := pipeline.New(pipeline.Options{
		BaseURL:    cfg.Pipeline.BaseURL,
		HTTPClient: b.httpClient,
		Timeout:    cfg.Pipeline.Timeout,
		Tokens:     durable,
		Augment: pipeline.AugmentOptions{
			TokenKey: session.KeyToken,
			Header:   cfg.Pipeline.CredentialHeader,
			Scheme:   cfg.Pipeline.CredentialScheme,
		},
		Notifier: b.notifier,
		Guard:    c.guard,
		Observer: pipelineObserver{
			metrics: c.metrics,
			onSuppressed: func() {
				c.emitAudit(context.Background(), AuditExpirySuppressed, "", nil, nil)
			},
		},
		Logger:         logger,
		TracerProvider: b.tracerProvider,
	})
	if err != nil {
		return fail(err)
	}
	c.pipeline = p

	c.api, err = api.New(p, cfg.Pipeline.Paths)
	if err != nil {
		return fail(err)
	}

	// -------- SESSION STORE --------
	store, err := session.NewStore(ctx, durable, c.api, c.routes, session.Options{
		LayoutRoute:     cfg.Session.LayoutRoute,
		ConfirmInterval: cfg.Session.ConfirmInterval,
		ConfirmTimeout:  cfg.Session.ConfirmTimeout,
		Logger:          logger,
		OnConfirmTimeout: func([]string) {
			c.metrics.Inc(MetricMenuConfirmTimeout)
		},
	})
	if err != nil {
		return fail(err)
	}
	c.store = store

	c.flows = c.newFlows()

	b.built = true
	return c, nil
}

func (b *Builder) openStore(cfg Config) (kv.Store, bool, error) {
	if b.store != nil {
		return b.store, false, nil
	}

	switch cfg.Storage.Backend {
	case StorageRedis:
		opts := []kv.RedisOption{kv.WithRedisPrefix(cfg.Storage.RedisPrefix)}
		if b.redis != nil {
			return kv.NewRedis(b.redis, opts...), true, nil
		}
		if cfg.Storage.RedisAddr == "" {
			return nil, false, invalid("Storage RedisAddr is required for the redis backend without WithRedis")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		opts = append(opts, kv.WithOwnedClient())
		return kv.NewRedis(client, opts...), true, nil
	case StorageSQLite:
		store, err := kv.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, false, err
		}
		return store, true, nil
	default:
		return kv.NewMemory(), true, nil
	}
}
