package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	if s.throttled(ctx, creds.Username) {
		writeEnvelope(w, http.StatusOK, codeThrottled, nil, "too many login attempts, try again later")
		return
	}

	s.mu.RLock()
	acct, ok := s.users[creds.Username]
	var hash string
	if ok {
		hash = acct.hash
	}
	s.mu.RUnlock()

	if !ok {
		s.loginFailed(ctx, creds.Username)
		fail(w, "wrong username or password")
		return
	}
	match, err := s.hasher.Verify(creds.Password, hash)
	if err != nil {
		s.logger.Error("stored hash unreadable", "username", creds.Username, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !match {
		s.loginFailed(ctx, creds.Username)
		fail(w, "wrong username or password")
		return
	}

	token, claims, err := s.tokens.Issue(creds.Username)
	if err != nil {
		s.logger.Error("issue token failed", "username", creds.Username, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.sessions[claims.SessionID] = creds.Username
	s.mu.Unlock()

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, creds.Username); err != nil {
			s.logger.Warn("reset login throttle failed", "username", creds.Username, "error", err)
		}
	}
	s.metrics.logins.Add(1)
	s.logger.Debug("login", "username", creds.Username, "session_id", claims.SessionID)
	s.ok(w, token)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(r)
	if !ok {
		s.reject(w, "unknown user")
		return
	}
	s.ok(w, acct.profile)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(r)
	if !ok {
		s.reject(w, "unknown user")
		return
	}
	s.ok(w, acct.menu)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	s.Revoke(claims.SessionID)
	s.ok(w, nil)
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, err.Error())
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	s.mu.RLock()
	acct, ok := s.users[claims.Username]
	var hash string
	if ok {
		hash = acct.hash
	}
	s.mu.RUnlock()
	if !ok {
		s.reject(w, "unknown user")
		return
	}

	match, err := s.hasher.Verify(req.OldPassword, hash)
	if err != nil || !match {
		fail(w, "old password is incorrect")
		return
	}
	next, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	acct.hash = next
	s.mu.Unlock()
	s.ok(w, nil)
}

func (s *Server) account(r *http.Request) (*account, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.users[claims.Username]
	return acct, ok
}

// throttled fails open when the limiter backend is down.
func (s *Server) throttled(ctx context.Context, username string) bool {
	if s.limiter == nil {
		return false
	}
	err := s.limiter.Check(ctx, username)
	if errors.Is(err, rate.ErrRateLimited) {
		return true
	}
	if err != nil {
		s.logger.Warn("login throttle unavailable", "error", err)
	}
	return false
}

func (s *Server) loginFailed(ctx context.Context, username string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, username); err != nil {
		s.logger.Warn("record login failure failed", "username", username, "error", err)
	}
}
