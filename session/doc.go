// Package session holds the client-side authentication state: the opaque
// token, the user profile and the authorization menu, mirrored write-through
// into a durable [kv.Store].
//
// # State machine
//
// A [Store] moves between two logical states. Logged out: empty token, empty
// profile, empty menu, MenuLoaded false. Logged in: non-empty token, with
// profile and menu filled in by separate fetches. [Store.Logout] returns to
// the logged-out state in a single transition; readers never observe a
// partially cleared session.
//
// # Menu loading
//
// [Store.FetchMenu] registers menu-derived routes and only reports the menu as
// loaded once the [RouteRegistry] confirms those routes are visible, or once
// a bounded wait has elapsed. [Store.SetMenu] skips the confirmation and marks
// the menu loaded immediately.
//
// # What this package must NOT do
//
//   - Import pipeline or goSession (no upward imports).
//   - Navigate, show notices, or retry failed collaborator calls.
package session
