package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// SignInStage names the step a sign-in stopped at.
type SignInStage string

const (
	StageLogin   SignInStage = "login"
	StageProfile SignInStage = "profile"
	StageMenu    SignInStage = "menu"
)

// SignInDeps captures sign-in flow dependencies. Login is required; a nil
// FetchProfile or FetchMenu skips that step.
type SignInDeps struct {
	Login        func(ctx context.Context, creds session.Credentials) error
	FetchProfile func(ctx context.Context) error
	FetchMenu    func(ctx context.Context) error
}

// SignInResult reports the completed steps. Err is nil when every step ran.
type SignInResult struct {
	Completed []SignInStage
	Failed    SignInStage
	Err       error
}

// RunSignIn runs login, then the profile fetch, then the menu fetch. It stops
// at the first failure; earlier steps are not undone.
func RunSignIn(ctx context.Context, creds session.Credentials, deps SignInDeps) SignInResult {
	steps := []struct {
		stage SignInStage
		run   func(context.Context) error
	}{
		{StageLogin, func(ctx context.Context) error { return deps.Login(ctx, creds) }},
		{StageProfile, deps.FetchProfile},
		{StageMenu, deps.FetchMenu},
	}

	var res SignInResult
	for _, step := range steps {
		if step.run == nil {
			continue
		}
		if err := step.run(ctx); err != nil {
			res.Failed = step.stage
			res.Err = err
			return res
		}
		res.Completed = append(res.Completed, step.stage)
	}
	return res
}
