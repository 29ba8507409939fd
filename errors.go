package goSession

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized reports a request without an authenticated session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials reports a password mismatch at login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound reports that no active user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists reports a sign-up for an email already in use.
	ErrAccountExists = errors.New("account already exists")
	// ErrBadRequest reports missing or malformed input.
	ErrBadRequest = errors.New("bad request")
	// ErrLoginRateLimited reports an exhausted failed-login budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionInvalidationFailed reports that some sessions could not be destroyed.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrNoSession reports an account operation invoked outside the lifecycle middleware.
	ErrNoSession = errors.New("no session in request")
	// ErrEngineNotReady reports an Engine that was not produced by Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// StatusCode maps an Engine error to the HTTP status used in the response
// envelope. Unknown errors map to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, ErrLoginRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
