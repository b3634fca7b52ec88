package goSession

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/session"
)

// EnvPrefix is prepended to every variable read by LoadConfigFromEnv.
const EnvPrefix = "GOSESSION_"

// Config is the full client configuration. Build it with DefaultConfig,
// adjust fields, then hand it to Builder.WithConfig.
type Config struct {
	Pipeline PipelineConfig `envPrefix:"PIPELINE_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Guard    GuardConfig    `envPrefix:"GUARD_"`
	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`
	Audit    AuditConfig    `envPrefix:"AUDIT_"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

/*
====================================
PIPELINE CONFIG
====================================
*/

// PipelineConfig controls outbound calls.
type PipelineConfig struct {
	// BaseURL must be absolute; endpoint paths are appended to it.
	BaseURL string        `env:"BASE_URL"`
	Timeout time.Duration `env:"TIMEOUT"`
	// CredentialHeader carries the token. CredentialScheme, when set, is
	// prepended to it ("Bearer"); empty sends the raw token.
	CredentialHeader string    `env:"CREDENTIAL_HEADER"`
	CredentialScheme string    `env:"CREDENTIAL_SCHEME"`
	Paths            api.Paths `envPrefix:"PATH_"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls menu confirmation and navigation.
type SessionConfig struct {
	LayoutRoute     string        `env:"LAYOUT_ROUTE"`
	ConfirmInterval time.Duration `env:"CONFIRM_INTERVAL"`
	ConfirmTimeout  time.Duration `env:"CONFIRM_TIMEOUT"`
	// LoginPath is where the expiry reaction and SignOut navigate.
	LoginPath string `env:"LOGIN_PATH"`
}

// GuardConfig controls the expiry reaction.
type GuardConfig struct {
	// ResetDelay is how long further 401s are ignored after a reaction.
	ResetDelay time.Duration `env:"RESET_DELAY"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects the durable store when none is injected.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
	StorageSQLite StorageBackend = "sqlite"
)

// StorageConfig selects and configures the durable store.
type StorageConfig struct {
	Backend     StorageBackend `env:"BACKEND"`
	RedisAddr   string         `env:"REDIS_ADDR"`
	RedisPrefix string         `env:"REDIS_PREFIX"`
	SQLitePath  string         `env:"SQLITE_PATH"`
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a config that validates as-is and talks to a backend
// on the loopback interface.
func DefaultConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			BaseURL:          "http://127.0.0.1:8080/api",
			Timeout:          pipeline.DefaultTimeout,
			CredentialHeader: pipeline.DefaultCredentialHeader,
			Paths:            api.DefaultPaths(),
		},
		Session: SessionConfig{
			LayoutRoute:     session.DefaultLayoutRoute,
			ConfirmInterval: session.DefaultConfirmInterval,
			ConfirmTimeout:  session.DefaultConfirmTimeout,
			LoginPath:       "/login",
		},
		Guard: GuardConfig{
			ResetDelay: pipeline.DefaultResetDelay,
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: kv.DefaultRedisPrefix,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 128,
			DropIfFull: true,
		},
	}
}

// LoadConfigFromEnv starts from DefaultConfig and overrides every field whose
// GOSESSION_ variable is set, e.g. GOSESSION_PIPELINE_BASE_URL or
// GOSESSION_GUARD_RESET_DELAY=2s. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix})
}

func loadConfig(opts env.Options) (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks field ranges. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	base, err := url.Parse(strings.TrimSpace(c.Pipeline.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return invalid("Pipeline BaseURL must be an absolute URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return invalid("Pipeline BaseURL scheme must be http or https")
	}
	if c.Pipeline.Timeout <= 0 {
		return invalid("Pipeline Timeout must be > 0")
	}
	if strings.TrimSpace(c.Pipeline.CredentialHeader) == "" {
		return invalid("Pipeline CredentialHeader must not be empty")
	}

	if c.Session.ConfirmInterval <= 0 {
		return invalid("Session ConfirmInterval must be > 0")
	}
	if c.Session.ConfirmTimeout <= 0 {
		return invalid("Session ConfirmTimeout must be > 0")
	}
	if !strings.HasPrefix(c.Session.LoginPath, "/") {
		return invalid("Session LoginPath must start with /")
	}

	if c.Guard.ResetDelay <= 0 {
		return invalid("Guard ResetDelay must be > 0")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisPrefix == "" {
			return invalid("Storage RedisPrefix must not be empty")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return invalid("Storage SQLitePath is required for the sqlite backend")
		}
	default:
		return invalid(fmt.Sprintf("Storage Backend %q is not supported", c.Storage.Backend))
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when audit is enabled")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

/*
====================================
LINT
====================================
*/

// LintWarning is a config that validates but is probably a mistake.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that are legal but unusual. It does not validate.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if c.Guard.ResetDelay > 0 && c.Guard.ResetDelay < 100*time.Millisecond {
		add("reset_delay_short", "expiry reaction may run more than once for one burst of 401s")
	}
	if c.Guard.ResetDelay > time.Minute {
		add("reset_delay_long", "a new expiry after re-login may be ignored")
	}
	if c.Session.ConfirmTimeout > 0 && c.Session.ConfirmTimeout < c.Session.ConfirmInterval {
		add("confirm_timeout_short", "route confirmation gives up before the first poll")
	}
	if c.Pipeline.Timeout > 2*time.Minute {
		add("timeout_long", "calls may hang for minutes before a notice is shown")
	}
	if base, err := url.Parse(c.Pipeline.BaseURL); err == nil && base.Scheme == "http" && !isLoopback(base.Hostname()) {
		add("credential_over_http", "the credential is sent in clear text to a remote host")
	}
	if c.Storage.Backend == StorageMemory {
		add("storage_memory", "session state does not survive a restart")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "session events are not recorded")
	}
	return ws
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
