// Package audit implements async delivery of session and account audit events.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zerolog, remote log server, fan-out).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: audit record with timestamp, type, user, session fingerprint, client IP.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which events
// to emit; the Engine and flow functions do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goSession or any sibling internal package.
//   - Receive raw session tokens.
package audit
