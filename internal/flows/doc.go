// Package flows contains pure-function orchestrators for the account
// operations that drive the session core: login, logout, renew-user, sign-up
// and session revocation.
//
// Each flow function accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. The root Engine builds the
// dependency sets once and delegates to [Service].
//
// # Architecture boundaries
//
// Flows coordinate the user directory, the session record store, the request's
// session handle, the login throttle, audit and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession or middleware (to avoid import cycles).
//   - Write session records directly; persistence belongs to the lifecycle
//     middleware's finalize step.
package flows
