// Package flows contains pure-function orchestrators for the multi-step
// Client operations.
//
// Each flow function (RunSignIn, RunSignOut, RunExpiry) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. This keeps the ordering rules of each sequence testable with
// plain function fakes and keeps the Client type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, the API client and the
// navigator. They do NOT own any of these resources; ownership stays with the
// Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
