// Package rate implements the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - login:fail:u:  per normalized email
//   - login:fail:ip: per client IP (optional)
//
// A budget of N allows N failures inside a window; the next attempt is
// rejected until the window expires or a successful login resets it.
package rate
