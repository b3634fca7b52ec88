// Package pipeline wraps every outbound API call with two stages: request
// augmentation (attach the stored credential) and response classification
// (success, business failure, authentication failure, transport failure).
//
// # Classification
//
// [ClassifyEnvelope], [ClassifyBody] and [ClassifyTransport] are pure
// functions returning an [Outcome]. [Pipeline.Do] applies the side effects an
// outcome asks for: at most one user-visible [Notice] and at most one
// [ExpiryGuard.Trigger]. The classified error is always returned to the
// caller; nothing is swallowed and nothing is retried.
//
// # Expiry reaction
//
// Concurrent calls may all observe a 401. [ExpiryGuard] lets exactly one of
// them run the reaction (logout and navigation) per episode and ignores the
// rest until a fixed delay has passed.
//
// # What this package must NOT do
//
//   - Import session or goSession. The token is read from a [TokenSource]
//     and the reaction is an injected function.
//   - Cache the token between calls.
package pipeline
