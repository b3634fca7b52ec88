package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the token claims attached by the auth guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok
}

// guard rejects requests without a live session.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := credential(r.Header.Get(s.cfg.CredentialHeader))
		if !ok {
			s.reject(w, "missing token")
			return
		}

		claims, err := s.tokens.Parse(token)
		if err != nil {
			s.reject(w, "token expired")
			return
		}
		if !s.sessionLive(claims.SessionID) {
			s.reject(w, "session revoked")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credential accepts the raw token or a Bearer-prefixed one.
func credential(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "Bearer "); ok {
		value = strings.TrimSpace(rest)
	}
	return value, value != ""
}

func (s *Server) reject(w http.ResponseWriter, msg string) {
	s.metrics.rejected.Add(1)
	if RejectMode(s.rejectMode.Load()) == RejectStatus {
		writeEnvelope(w, http.StatusUnauthorized, codeUnauthorized, nil, msg)
		return
	}
	writeEnvelope(w, http.StatusOK, codeUnauthorized, nil, msg)
}
