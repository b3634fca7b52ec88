package pipeline

import (
	"context"
	"log/slog"
)

// Notice texts shown for failures whose message is fixed.
const (
	NoticeNoResponse    = "server did not respond"
	NoticeRequestFailed = "request failed"
	NoticeNotFound      = "endpoint not found, check that the backend is running"
	NoticeServerError   = "server error"
	NoticeNetwork       = "network error, check that the backend is running"
	NoticeNetworkFault  = "network error"
)

// Notice is an advisory, user-visible message about a failed call.
type Notice struct {
	Message string
	Kind    error
}

// Notifier surfaces notices. Implementations must not block for long; notices
// never gate further calls.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) {
	f(ctx, n)
}

// LogNotifier writes notices to a structured logger at warn level.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "notice", "message", n.Message, "kind", n.Kind)
}
