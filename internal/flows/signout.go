package flows

import "context"

// SignOutDeps captures sign-out flow dependencies.
type SignOutDeps struct {
	// RemoteLogout ends the server-side session. Optional.
	RemoteLogout func(ctx context.Context) error
	LocalLogout  func(ctx context.Context) error
	Navigate     func(ctx context.Context, path string)
	LoginPath    string
	// Expired reports whether a remote failure already ran the expiry
	// reaction, which navigates on its own.
	Expired func(err error) bool
}

type SignOutResult struct {
	RemoteErr error
	LocalErr  error
	Navigated bool
}

// RunSignOut tells the backend first, while the credential is still attached,
// then clears local state and navigates to the login path. A remote failure
// never prevents the local logout. When the remote call hit an expired
// session the navigation is left to the expiry reaction.
func RunSignOut(ctx context.Context, deps SignOutDeps) SignOutResult {
	var res SignOutResult
	if deps.RemoteLogout != nil {
		res.RemoteErr = deps.RemoteLogout(ctx)
	}
	res.LocalErr = deps.LocalLogout(ctx)
	if res.RemoteErr != nil && deps.Expired != nil && deps.Expired(res.RemoteErr) {
		return res
	}
	if deps.Navigate != nil {
		deps.Navigate(ctx, deps.LoginPath)
		res.Navigated = true
	}
	return res
}
