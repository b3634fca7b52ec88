// Package kv provides the durable key-value stores that mirror session state
// across process restarts.
//
// # Architecture boundaries
//
// A [Store] is a flat string-keyed, string-valued map with get/set/remove
// semantics. It knows nothing about tokens, profiles or menus; the session
// package owns key names and encoding. The request pipeline reads the token
// straight from a [Store] on every call, so implementations must be safe for
// concurrent use.
//
// Three implementations ship with the package:
//
//   - [Memory]: process-local map, used by tests and short-lived tools.
//   - [Redis]: shared store backed by go-redis, keys namespaced by a prefix.
//   - [SQLite]: single-file store backed by modernc.org/sqlite.
//
// # What this package must NOT do
//
//   - Import session, pipeline or goSession (no upward imports).
//   - Interpret or validate stored values.
package kv
