// Package devserver is a small in-memory backend that speaks the endpoint
// contract goSession clients expect. It exists for examples, integration
// tests and the load-test CLI.
//
// Users are kept in memory with Argon2id password hashes. Login issues an
// HS256 token carrying a session id; every authenticated route checks the
// token and the session. Revoking a session makes the next request fail
// the way a real backend reports an expired token, either inside the
// envelope (HTTP 200, code 401) or as an HTTP 401, depending on RejectMode.
//
// # Endpoints
//
// Under Config.Prefix (default /api):
//
//	POST /auth/login     {username,password} -> token
//	GET  /auth/info      profile
//	GET  /auth/menu      menu tree
//	POST /auth/logout    ends the calling session
//	PUT  /auth/password  {oldPassword,newPassword,confirmPassword}
package devserver
