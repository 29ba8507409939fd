// Package password hashes credentials with Argon2id and verifies both Argon2id
// PHC strings and the hex HMAC-SHA256 digests written by earlier deployments.
//
// # Output format
//
// New hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy digests are 64 lowercase hex characters keyed by a server secret.
// [Hasher.NeedsUpgrade] reports both legacy digests and Argon2id hashes made
// with weaker parameters so callers can rehash after a successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goSession package.
//   - Log plaintext passwords.
package password
