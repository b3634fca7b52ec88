package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/kv"
)

const (
	// DefaultLayoutRoute is the parent route every menu route is registered under.
	DefaultLayoutRoute = "Layout"
	// DefaultConfirmInterval is the route-registration poll interval.
	DefaultConfirmInterval = 10 * time.Millisecond
	// DefaultConfirmTimeout caps the total route-registration wait.
	DefaultConfirmTimeout = 500 * time.Millisecond
)

var (
	// ErrNoDurableStore is returned by NewStore without a kv.Store.
	ErrNoDurableStore = errors.New("session durable store not configured")
	// ErrNoBackend is returned by network-backed operations without a Backend.
	ErrNoBackend = errors.New("session backend not configured")
	// ErrEmptyToken is returned when the login collaborator succeeds with an empty token.
	ErrEmptyToken = errors.New("login returned empty token")
	// ErrLoggedOut is returned when a result arrives for a session that was
	// logged out (or re-authenticated) while the call was in flight. The
	// result is discarded.
	ErrLoggedOut = errors.New("session logged out")
	// ErrMenuSuperseded is returned by FetchMenu when a logout or another menu
	// assignment happened during the route-registration wait.
	ErrMenuSuperseded = errors.New("menu load superseded")
)

// Backend is the set of network collaborators the store depends on. Errors
// are propagated to callers unchanged.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (string, error)
	UserInfo(ctx context.Context) (map[string]any, error)
	Menu(ctx context.Context) ([]MenuNode, error)
}

// Options tunes menu confirmation and diagnostics.
type Options struct {
	LayoutRoute     string
	ConfirmInterval time.Duration
	ConfirmTimeout  time.Duration
	Logger          *slog.Logger

	// OnConfirmTimeout fires when FetchMenu gives up waiting for routes.
	OnConfirmTimeout func(missing []string)
}

// Store owns the session state and keeps it consistent with the durable
// store. All methods are safe for concurrent use.
type Store struct {
	durable kv.Store
	backend Backend
	routes  RouteRegistry
	opts    Options
	logger  *slog.Logger

	// writeMu serializes write-through mutations so durable and memory
	// updates land in the same order.
	writeMu sync.Mutex

	mu    sync.RWMutex
	state Session
	// epoch changes whenever the credential changes (login, logout, restore).
	epoch uint64
	// menuGen changes whenever the menu is reassigned or cleared.
	menuGen uint64
}

// NewStore builds a store and seeds it from durable.
//
//	Performance: 3 durable reads.
func NewStore(ctx context.Context, durable kv.Store, backend Backend, routes RouteRegistry, opts Options) (*Store, error) {
	if durable == nil {
		return nil, ErrNoDurableStore
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = DefaultConfirmInterval
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		durable: durable,
		backend: backend,
		routes:  routes,
		opts:    opts,
		logger:  logger.With("component", "session"),
		state:   emptySession(),
	}
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore reseeds memory from the durable store. Missing keys become empty
// values; undecodable values are logged and treated as missing. MenuLoaded is
// always false after a restore because route registration is not replayed.
func (s *Store) Restore(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw := make(map[string]string, len(DurableKeys))
	for _, key := range DurableKeys {
		v, _, err := s.durable.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("restore %s: %w", key, err)
		}
		raw[key] = v
	}

	next := emptySession()
	next.Token = raw[KeyToken]
	if next.Token != "" {
		profile, err := decodeProfile(raw[KeyProfile])
		if err != nil {
			s.logger.Warn("discarding stored profile", "error", err)
		}
		menu, err := decodeMenu(raw[KeyMenu])
		if err != nil {
			s.logger.Warn("discarding stored menu", "error", err)
		}
		next.Profile = profile
		next.Menu = menu
	}

	s.mu.Lock()
	s.state = next
	s.epoch++
	s.menuGen++
	s.mu.Unlock()
	return nil
}

// Login exchanges creds for a token and stores it. Profile and menu are not
// fetched.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	token, err := s.backend.Login(ctx, creds)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrEmptyToken
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.durable.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.mu.Lock()
	s.state.Token = token
	s.epoch++
	s.mu.Unlock()
	return nil
}

// FetchProfile replaces the profile with the user-info collaborator's payload.
func (s *Store) FetchProfile(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	epoch := s.currentEpoch()

	profile, err := s.backend.UserInfo(ctx)
	if err != nil {
		return err
	}
	encoded, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.sameSession(epoch) {
		return ErrLoggedOut
	}
	if err := s.durable.Set(ctx, KeyProfile, encoded); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	// Decode the encoded form so memory holds exactly what a restart would.
	stored, _ := decodeProfile(encoded)

	s.mu.Lock()
	s.state.Profile = stored
	s.mu.Unlock()
	return nil
}

// FetchMenu loads the menu, registers its routes and marks it loaded once the
// routes are visible. If confirmation does not arrive within ConfirmTimeout
// the menu is marked loaded anyway and a warning is logged.
func (s *Store) FetchMenu(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	epoch := s.currentEpoch()

	menu, err := s.backend.Menu(ctx)
	if err != nil {
		return err
	}
	if menu == nil {
		menu = []MenuNode{}
	}

	gen, err := s.assignMenu(ctx, epoch, menu, false)
	if err != nil {
		return err
	}

	if s.routes == nil {
		s.logger.Debug("no route registry, skipping registration")
	} else {
		s.routes.RegisterRoutes(cloneMenu(menu))
		names := confirmNames(s.opts.LayoutRoute, menu)
		if !WaitForRoutes(ctx, s.routes, names, s.opts.ConfirmInterval, s.opts.ConfirmTimeout) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			missing := missingRoutes(s.routes, append([]string(nil), names...))
			s.logger.Warn("route registration not confirmed, marking menu loaded",
				"missing", missing,
				"timeout", s.opts.ConfirmTimeout,
			)
			if s.opts.OnConfirmTimeout != nil {
				s.opts.OnConfirmTimeout(missing)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menuGen != gen {
		return ErrMenuSuperseded
	}
	s.state.MenuLoaded = true
	return nil
}

// SetMenu assigns menu directly and marks it loaded without waiting for route
// registration.
func (s *Store) SetMenu(ctx context.Context, menu []MenuNode) error {
	if menu == nil {
		menu = []MenuNode{}
	}
	_, err := s.assignMenu(ctx, s.currentEpoch(), menu, true)
	return err
}

func (s *Store) assignMenu(ctx context.Context, epoch uint64, menu []MenuNode, loaded bool) (uint64, error) {
	encoded, err := encodeMenu(menu)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.sameSession(epoch) {
		return 0, ErrLoggedOut
	}
	if err := s.durable.Set(ctx, KeyMenu, encoded); err != nil {
		return 0, fmt.Errorf("persist menu: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Menu = cloneMenu(menu)
	s.state.MenuLoaded = loaded
	s.menuGen++
	return s.menuGen, nil
}

// Logout resets the session and clears the durable keys. Memory is reset
// before the durable removals are attempted, so the logout is observable even
// when the durable store fails; removal errors are joined and returned.
// Logout never navigates.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state = emptySession()
	s.epoch++
	s.menuGen++
	s.mu.Unlock()

	var errs []error
	for _, key := range DurableKeys {
		if err := s.durable.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Token returns the in-memory token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// MenuLoaded reports whether the menu is loaded and its routes are in place.
func (s *Store) MenuLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.MenuLoaded
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// sameSession must be called with writeMu held.
func (s *Store) sameSession(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch == epoch && s.state.Token != ""
}
