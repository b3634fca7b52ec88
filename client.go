package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/session"
)

// Client is the session context object: it owns the session store, the
// request pipeline and its expiry guard. Create one with [Builder.Build] at
// process start and Close it at process end.
type Client struct {
	config Config
	logger *slog.Logger

	durable   kv.Store
	ownsStore bool

	store     *session.Store
	pipeline  *pipeline.Pipeline
	guard     *pipeline.ExpiryGuard
	api       *api.Client
	routes    session.RouteRegistry
	navigator Navigator
	flows     flows.Service

	metrics *Metrics
	audit   *auditDispatcher

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (c *Client) ready() error {
	if c == nil || c.store == nil || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

// Login exchanges creds for a token and persists it. Profile and menu are not
// fetched; use SignIn for the full sequence.
func (c *Client) Login(ctx context.Context, creds session.Credentials) error {
	if err := c.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}

	err := c.store.Login(ctx, creds)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
	} else {
		c.metrics.Inc(MetricLoginSuccess)
	}
	c.emitAudit(ctx, AuditLogin, creds.Username, err, nil)
	return err
}

// FetchProfile replaces the profile with the backend's current view.
func (c *Client) FetchProfile(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	err := c.store.FetchProfile(ctx)
	if err != nil {
		c.metrics.Inc(MetricProfileFailure)
	} else {
		c.metrics.Inc(MetricProfileFetched)
	}
	c.emitAudit(ctx, AuditProfileFetched, c.username(), err, nil)
	return err
}

// FetchMenu loads the menu, registers its routes and marks it loaded once the
// routes are visible.
func (c *Client) FetchMenu(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	err := c.store.FetchMenu(ctx)
	if err != nil {
		c.metrics.Inc(MetricMenuFailure)
	} else {
		c.metrics.Inc(MetricMenuLoaded)
	}
	c.emitAudit(ctx, AuditMenuLoaded, c.username(), err, c.menuMetadata)
	return err
}

// SetMenu assigns menu directly and marks it loaded without registering
// routes.
func (c *Client) SetMenu(ctx context.Context, menu []session.MenuNode) error {
	if err := c.ready(); err != nil {
		return err
	}

	err := c.store.SetMenu(ctx, menu)
	if err == nil {
		c.metrics.Inc(MetricMenuSet)
	}
	c.emitAudit(ctx, AuditMenuSet, c.username(), err, c.menuMetadata)
	return err
}

// Logout clears the session locally. It does not call the backend or
// navigate; see SignOut.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	username := c.username()
	err := c.store.Logout(ctx)
	c.metrics.Inc(MetricLogout)
	c.emitAudit(ctx, AuditLogout, username, err, nil)
	return err
}

// SignIn runs Login, FetchProfile and FetchMenu in order and stops at the
// first failure. A failure after login leaves the session logged in.
func (c *Client) SignIn(ctx context.Context, creds session.Credentials) error {
	if err := c.ready(); err != nil {
		return err
	}

	res := c.flows.SignIn(ctx, creds)
	if res.Err != nil {
		return fmt.Errorf("sign in %s: %w", res.Failed, res.Err)
	}
	return nil
}

// SignOut ends the server-side session when possible, then logs out locally
// and navigates to the login path. If the backend call found the session
// already expired, the expiry reaction has navigated and SignOut does not
// navigate again. Only the local logout error is returned; a backend failure
// is logged.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	username := c.username()
	res := c.flows.SignOut(ctx)
	if res.RemoteErr != nil {
		c.logger.WarnContext(ctx, "backend logout failed", "error", res.RemoteErr)
	}
	c.emitAudit(ctx, AuditSignOut, username, res.LocalErr, func() map[string]string {
		return map[string]string{"remote_ok": strconv.FormatBool(res.RemoteErr == nil)}
	})
	return res.LocalErr
}

// ChangePassword validates req against the password policy and submits it.
func (c *Client) ChangePassword(ctx context.Context, req api.PasswordChange) error {
	if err := c.ready(); err != nil {
		return err
	}

	err := c.api.ChangePassword(ctx, req)
	if err != nil {
		c.metrics.Inc(MetricPasswordChangeFailure)
	} else {
		c.metrics.Inc(MetricPasswordChangeSuccess)
	}
	c.emitAudit(ctx, AuditPasswordChanged, c.username(), err, nil)
	return err
}

// Do sends an arbitrary API call through the pipeline.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.pipeline.Do(ctx, method, path, body)
}

// DoInto is Do followed by decoding the envelope data into out.
func (c *Client) DoInto(ctx context.Context, method, path string, body, out any) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.pipeline.DoInto(ctx, method, path, body, out)
}

// Session returns a deep copy of the current session state.
func (c *Client) Session() session.Session {
	if c == nil || c.store == nil {
		return session.Session{Profile: map[string]any{}, Menu: []session.MenuNode{}}
	}
	return c.store.Snapshot()
}

// Store returns the underlying session store.
func (c *Client) Store() *session.Store {
	return c.store
}

// Pipeline returns the request pipeline every call goes through.
func (c *Client) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// Guard returns the expiry guard.
func (c *Client) Guard() *pipeline.ExpiryGuard {
	return c.guard
}

// Routes returns the route registry FetchMenu registers into.
func (c *Client) Routes() session.RouteRegistry {
	return c.routes
}

// Navigator returns where expiry and SignOut navigate.
func (c *Client) Navigator() Navigator {
	return c.navigator
}

// MetricsSnapshot returns a copy of every counter.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close drains the audit dispatcher and closes the durable store if the
// client opened it. Calls after the first return the same result.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.audit.Close()
		if c.ownsStore && c.durable != nil {
			c.closeErr = c.durable.Close()
		}
	})
	return c.closeErr
}

func (c *Client) newFlows() flows.Service {
	loginPath := c.config.Session.LoginPath
	return flows.New(flows.Deps{
		SignIn: flows.SignInDeps{
			Login:        c.Login,
			FetchProfile: c.FetchProfile,
			FetchMenu:    c.FetchMenu,
		},
		SignOut: flows.SignOutDeps{
			RemoteLogout: c.api.Logout,
			LocalLogout:  c.Logout,
			Navigate:     c.navigator.Navigate,
			LoginPath:    loginPath,
			Expired: func(err error) bool {
				return errors.Is(err, pipeline.ErrAuth)
			},
		},
		Expiry: flows.ExpiryDeps{
			Logout:    c.store.Logout,
			Navigate:  c.navigator.Navigate,
			LoginPath: loginPath,
		},
	})
}

// onSessionExpired is the expiry guard reaction. It runs at most once per
// reset window.
func (c *Client) onSessionExpired(ctx context.Context) {
	username := c.username()
	err := c.flows.Expiry(ctx)
	c.metrics.Inc(MetricSessionExpired)
	c.metrics.Inc(MetricLogout)

	if err != nil && !errors.Is(err, kv.ErrStoreClosed) {
		c.logger.ErrorContext(ctx, "session expired, logout incomplete", "error", err)
	} else {
		c.logger.InfoContext(ctx, "session expired", "redirect", c.config.Session.LoginPath)
	}
	c.emitAudit(ctx, AuditSessionExpired, username, err, nil)
}

func (c *Client) username() string {
	profile := c.store.Snapshot().Profile
	for _, key := range []string{"username", "userName", "name"} {
		if v, ok := profile[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) menuMetadata() map[string]string {
	n := 0
	session.Walk(c.store.Snapshot().Menu, func(session.MenuNode) { n++ })
	return map[string]string{"nodes": strconv.Itoa(n)}
}
