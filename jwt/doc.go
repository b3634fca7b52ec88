// Package jwt issues and verifies the HS256 access tokens handed out by the
// development backend. Each token carries the username and a session id so
// the backend can revoke one session without rotating the key.
package jwt
