package pipeline

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultResetDelay is how long an expiry episode suppresses further
// reactions.
const DefaultResetDelay = time.Second

// Reaction is the expiry side effect: log the session out and navigate to the
// login entry point.
type Reaction func(ctx context.Context)

// ExpiryGuard runs a [Reaction] at most once per episode. An episode starts
// with the first Trigger and ends ResetDelay after that reaction returned.
// The reset is unconditional: later triggers neither extend nor cancel it.
type ExpiryGuard struct {
	active atomic.Bool
	delay  time.Duration
	react  Reaction

	episodes   atomic.Uint64
	suppressed atomic.Uint64
}

// NewExpiryGuard returns a guard with the given reset delay (DefaultResetDelay
// when delay <= 0).
func NewExpiryGuard(delay time.Duration, react Reaction) *ExpiryGuard {
	if delay <= 0 {
		delay = DefaultResetDelay
	}
	return &ExpiryGuard{delay: delay, react: react}
}

// Trigger runs the reaction if no episode is active and reports whether it
// did. The check and the set are one CompareAndSwap, so concurrent callers
// cannot both win. The reaction runs on a context detached from ctx's
// cancellation so a cancelled request still completes the logout.
func (g *ExpiryGuard) Trigger(ctx context.Context) bool {
	if g == nil {
		return false
	}
	if !g.active.CompareAndSwap(false, true) {
		g.suppressed.Add(1)
		return false
	}
	g.episodes.Add(1)
	defer time.AfterFunc(g.delay, g.Reset)

	if g.react != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		g.react(context.WithoutCancel(ctx))
	}
	return true
}

// Active reports whether an episode is in progress.
func (g *ExpiryGuard) Active() bool {
	return g != nil && g.active.Load()
}

// Reset ends the current episode immediately.
func (g *ExpiryGuard) Reset() {
	if g != nil {
		g.active.Store(false)
	}
}

// Episodes counts reactions that ran.
func (g *ExpiryGuard) Episodes() uint64 {
	if g == nil {
		return 0
	}
	return g.episodes.Load()
}

// Suppressed counts triggers ignored because an episode was active.
func (g *ExpiryGuard) Suppressed() uint64 {
	if g == nil {
		return 0
	}
	return g.suppressed.Load()
}

// ResetDelay returns the configured episode length.
func (g *ExpiryGuard) ResetDelay() time.Duration {
	return g.delay
}
