package goSession

import (
	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
)

type (
	// User is the redacted user projection stored in a session.
	User = session.User
	// Session is the request-scoped session handle installed by the middleware.
	Session = middleware.Session
	// UserDirectory is the document store the account operations depend on.
	UserDirectory = account.Directory
	// UserRecord is the durable user document.
	UserRecord = account.Record
	// PublicUser is a user record without credential hash or session list.
	PublicUser = account.Public
	// SignUpInput is the registration request.
	SignUpInput = flows.SignUpInput
)

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// SessionFromContext returns the session installed by the lifecycle middleware
// or the direct-bearer gate.
var SessionFromContext = middleware.FromContext
