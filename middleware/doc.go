// Package middleware exposes the HTTP side of the session subsystem: the session
// lifecycle middleware, the staleness signal, and the authentication gate.
//
// # Components
//
//   - [Lifecycle]: resolves the bearer token to a session (or mints one), applies
//     throttled sliding renewal, and persists the session at response finalize
//     only when its content hash changed.
//   - [RenewSignal]: compares the client's last-known user update time with the
//     session user and sets the renew header on mismatch.
//   - [Gate]: rejects requests without an authenticated session; on the
//     direct-bearer route prefix it resolves the bearer token straight from the
//     store instead.
//
// Handlers reach the request session through [FromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into [RecordStore] calls. It does NOT
// talk to Redis directly, look up user records, or verify credentials.
//
// # What this package must NOT do
//
//   - Surface store errors to clients (lookups degrade to a fresh session,
//     persistence failures are logged).
//   - Cache sessions across requests.
//   - Import goSession (no upward imports).
package middleware
