// Package internal holds helpers private to goSession.
//
// # Sub-packages
//
//   - flows: ordered multi-step operations (sign-in, sign-out, expiry)
//   - rate: Redis fixed-window login throttle used by devserver
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
package internal
