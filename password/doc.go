// Package password hashes and verifies passwords for the development backend
// with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify reads the parameters from the stored hash, so raising Params only
// affects new hashes. NeedsRehash reports hashes made with weaker settings.
//
// # What this package must NOT do
//
//   - Enforce the client password policy. That lives in package api.
//   - Store passwords.
package password
