package rate

import "errors"

var (
	ErrRateLimited      = errors.New("too many login attempts")
	ErrRedisUnavailable = errors.New("rate limiter backend unavailable")
)
