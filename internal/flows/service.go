package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.SignIn.Login != nil && s.deps.Expiry.Logout != nil
}

func (s Service) SignIn(ctx context.Context, creds session.Credentials) SignInResult {
	return RunSignIn(ctx, creds, s.deps.SignIn)
}

func (s Service) SignOut(ctx context.Context) SignOutResult {
	return RunSignOut(ctx, s.deps.SignOut)
}

func (s Service) Expiry(ctx context.Context) error {
	return RunExpiry(ctx, s.deps.Expiry)
}
