// Package internal contains helpers that are intentionally private to goSession,
// including session token generation and log-safe fingerprints.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: login, logout, renew and sign-up orchestration over the session core
//   - confloader: koanf-backed server configuration loading
//   - httpapi: chi router wiring for the sessiond binary
//   - logging: zerolog construction
//   - respond: JSON response envelopes
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
