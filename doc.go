// Package goSession provides a client-side session core: an authentication
// state store mirrored into durable key-value storage, and an HTTP request
// pipeline that attaches the stored credential, classifies every response and
// reacts to session expiry exactly once per episode.
//
// The package is designed for concurrent callers: Client methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config]
// and value types (MetricsSnapshot, AuditEvent). The state machine lives in
// session, the request pipeline in pipeline, storage in kv, the endpoint
// client in api and the route table in routes. Multi-step sequences are
// orchestrated under internal/flows.
//
// # What this package must NOT do
//
//   - Cache the credential outside the durable store; the pipeline reads it
//     on every call.
//   - Retry a failed call or refresh an expired token.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Expiry contract
//
// Any number of concurrent calls that observe a 401 inside one reset window
// produce exactly one logout and one navigation to the login path.
package goSession
