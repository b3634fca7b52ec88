package session

import (
	"context"
	"time"
)

// RouteRegistry is the rendering layer's route table. RegisterRoutes may
// apply asynchronously; HasRoute reports what is visible right now.
type RouteRegistry interface {
	RegisterRoutes(menu []MenuNode)
	HasRoute(name string) bool
}

// WaitForRoutes polls registry until every name is visible, ctx is done, or
// timeout elapses. It returns true only when all names were observed. An empty
// name list is confirmed immediately.
func WaitForRoutes(ctx context.Context, registry RouteRegistry, names []string, interval, timeout time.Duration) bool {
	if registry == nil {
		return false
	}
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}

	pending := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			pending = append(pending, name)
		}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pending = missingRoutes(registry, pending)
		if len(pending) == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return len(missingRoutes(registry, pending)) == 0
		case <-ticker.C:
		}
	}
}

func missingRoutes(registry RouteRegistry, names []string) []string {
	out := names[:0]
	for _, name := range names {
		if !registry.HasRoute(name) {
			out = append(out, name)
		}
	}
	return out
}

func confirmNames(layout string, menu []MenuNode) []string {
	names := make([]string, 0, 8)
	if layout != "" {
		names = append(names, layout)
	}
	Walk(menu, func(node MenuNode) {
		if node.Name != "" {
			names = append(names, node.Name)
		}
	})
	return names
}
