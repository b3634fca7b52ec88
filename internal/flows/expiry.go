package flows

import "context"

// ExpiryDeps captures the session-expired reaction dependencies.
type ExpiryDeps struct {
	Logout    func(ctx context.Context) error
	Navigate  func(ctx context.Context, path string)
	LoginPath string
}

// RunExpiry logs the session out and then navigates to the login path. The
// navigation happens even when logout reports a durable-store failure; memory
// is already reset by then.
func RunExpiry(ctx context.Context, deps ExpiryDeps) error {
	err := deps.Logout(ctx)
	if deps.Navigate != nil {
		deps.Navigate(ctx, deps.LoginPath)
	}
	return err
}
