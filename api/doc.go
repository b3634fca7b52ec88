// Package api is the typed client for the authentication endpoints. [Client]
// implements session.Backend on top of a [pipeline.Pipeline], so every call
// it makes gets the credential attached and the response classified.
//
// # What this package must NOT do
//
//   - Mutate session state. Results are returned to the session store, which
//     decides what to keep.
//   - Show notices or react to expiry; the pipeline already did.
package api
