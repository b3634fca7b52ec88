// Package rate throttles failed logins on the development backend with
// Redis fixed-window counters.
//
// # Window semantics
//
// INCR, then EXPIRE on the first hit of a window. Keys are
// <prefix>login:<username>.
//
// # What this package must NOT do
//
//   - Decide what a throttled request looks like on the wire.
package rate
