// Package session provides the Redis-backed session record store, the session
// payload model and its JSON codec, and the change detector used to decide
// whether a request mutated its session.
//
// # Stored form
//
// Each session is one Redis string: prefix + token mapping to a flat JSON object
// holding the reserved "_expiry" timestamp, an optional "user" projection, and any
// extension keys written by handlers. The Redis TTL is kept equal to the time left
// until "_expiry" at every write.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations), the [Payload] model and [Hash].
// It does NOT read HTTP requests, decide when a session is renewed, or enforce
// authentication policy. Those responsibilities belong to the middleware package.
//
// # What this package must NOT do
//
//   - Import goSession or middleware (no upward imports).
//   - Hold sessions in process memory between calls.
//   - Log or return raw session tokens in errors.
package session
