package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/pipeline"
	"github.com/MrEthical07/goSession/session"
)

const (
	codeOK           = pipeline.CodeOK
	codeUnauthorized = pipeline.CodeUnauthorized
	codeRejected     = 500
	codeThrottled    = 429
)

var (
	ErrDuplicateUser = errors.New("user already exists")
	ErrUnknownUser   = errors.New("unknown user")
)

// RejectMode selects how an unauthenticated request is answered.
type RejectMode int32

const (
	// RejectEnvelope answers HTTP 200 with envelope code 401.
	RejectEnvelope RejectMode = iota
	// RejectStatus answers HTTP 401.
	RejectStatus
)

// User is one account seeded into the server.
type User struct {
	Username string
	Password string
	Profile  map[string]any
	Menu     []session.MenuNode
}

// Config controls the server. Zero values get defaults in New.
type Config struct {
	Prefix           string
	CredentialHeader string
	TokenKey         []byte
	TokenTTL         time.Duration
	Issuer           string
	Reject           RejectMode
	Hash             password.Params
	// Latency is added to every authenticated request.
	Latency time.Duration
	Logger  *slog.Logger

	// Redis enables failed-login throttling when set.
	Redis            redis.UniversalClient
	MaxLoginFailures int
	LoginCooldown    time.Duration
}

type account struct {
	hash    string
	profile map[string]any
	menu    []session.MenuNode
}

type serverMetrics struct {
	logins   atomic.Int64
	rejected atomic.Int64
	served   atomic.Int64
}

// Stats is a snapshot of request counters.
type Stats struct {
	Logins   int64
	Rejected int64
	Served   int64
	Sessions int
}

// Server is an http.Handler. Safe for concurrent use.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	tokens     *jwt.Manager
	hasher     *password.Hasher
	limiter    *rate.Limiter
	router     chi.Router
	rejectMode atomic.Int32
	metrics    serverMetrics

	mu       sync.RWMutex
	users    map[string]*account
	sessions map[string]string
}

// New builds a server seeded with users.
func New(cfg Config, users ...User) (*Server, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	if cfg.CredentialHeader == "" {
		cfg.CredentialHeader = pipeline.DefaultCredentialHeader
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "gosession-dev"
	}
	if cfg.Hash == (password.Params{}) {
		cfg.Hash = password.DefaultParams()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := jwt.NewManager(jwt.Config{Key: cfg.TokenKey, TTL: cfg.TokenTTL, Issuer: cfg.Issuer})
	if err != nil {
		return nil, fmt.Errorf("devserver tokens: %w", err)
	}
	hasher, err := password.NewHasher(cfg.Hash)
	if err != nil {
		return nil, fmt.Errorf("devserver hasher: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.With("component", "devserver"),
		tokens:   tokens,
		hasher:   hasher,
		users:    make(map[string]*account, len(users)),
		sessions: make(map[string]string),
	}
	s.rejectMode.Store(int32(cfg.Reject))
	if cfg.Redis != nil {
		s.limiter = rate.New(cfg.Redis, rate.Config{
			MaxFailures: cfg.MaxLoginFailures,
			Cooldown:    cfg.LoginCooldown,
		})
	}

	for _, u := range users {
		if err := s.AddUser(u); err != nil {
			return nil, err
		}
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route(s.cfg.Prefix, func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.guard)
			if s.cfg.Latency > 0 {
				r.Use(s.delay)
			}
			r.Get("/auth/info", s.handleInfo)
			r.Get("/auth/menu", s.handleMenu)
			r.Post("/auth/logout", s.handleLogout)
			r.Put("/auth/password", s.handlePassword)
		})
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser hashes u.Password and stores the account.
func (s *Server) AddUser(u User) error {
	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return fmt.Errorf("hash %s: %w", u.Username, err)
	}
	profile := u.Profile
	if profile == nil {
		profile = map[string]any{"username": u.Username}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u.Username)
	}
	s.users[u.Username] = &account{hash: hash, profile: profile, menu: u.Menu}
	return nil
}

// SetRejectMode switches how later rejections are answered.
func (s *Server) SetRejectMode(mode RejectMode) {
	s.rejectMode.Store(int32(mode))
}

// Revoke ends one session. It reports whether the session existed.
func (s *Server) Revoke(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// RevokeUser ends every session of username and returns how many.
func (s *Server) RevokeUser(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sid, owner := range s.sessions {
		if owner == username {
			delete(s.sessions, sid)
			n++
		}
	}
	return n
}

// RevokeAll ends every session and returns how many.
func (s *Server) RevokeAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	clear(s.sessions)
	return n
}

// Stats returns request counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return Stats{
		Logins:   s.metrics.logins.Load(),
		Rejected: s.metrics.rejected.Load(),
		Served:   s.metrics.served.Load(),
		Sessions: n,
	}
}

func (s *Server) sessionLive(sid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sid]
	return ok
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(s.cfg.Latency):
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeEnvelope(w http.ResponseWriter, status, code int, data any, msg string) {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(pipeline.Envelope{Code: code, Data: raw, Message: msg})
}

func (s *Server) ok(w http.ResponseWriter, data any) {
	s.metrics.served.Add(1)
	writeEnvelope(w, http.StatusOK, codeOK, data, "")
}

func fail(w http.ResponseWriter, msg string) {
	writeEnvelope(w, http.StatusOK, codeRejected, nil, msg)
}
