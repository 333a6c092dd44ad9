// Package api contains the client for the member backend's auth API.
package api

import (
	"context"
	"time"

	"github.com/dmitrijs2005/membercli/internal/client/models"
)

// SignInResult is the outcome of a sign-in call. Success false means the
// backend rejected the credentials; transport problems are reported as
// errors instead.
type SignInResult struct {
	Success      bool
	Token        string
	RefreshToken string
	User         *models.User
}

// CheckResult is the outcome of a session-check call.
type CheckResult struct {
	Success       bool
	Authenticated bool
	User          *models.User
}

// Client defines the operations of the remote auth API.
//
// All methods must honor context cancellation/timeouts.
type Client interface {
	SignIn(ctx context.Context, username, password string) (*SignInResult, error)
	SignOut(ctx context.Context) error
	CheckSignIn(ctx context.Context) (*CheckResult, error)
	Register(ctx context.Context, username, email, password string) error
	Close() error
}

// CookieWriter is the cookie surface used by the session store. The auth
// cookies live next to the transport that sends them, so the HTTP client
// implements this alongside Client.
type CookieWriter interface {
	// SetAuthCookies writes the token (and refresh_token, if non-empty)
	// cookies under path "/". A zero expiry means a session cookie.
	SetAuthCookies(token, refresh string, expires time.Time)

	// ClearAuthCookies expires token, refresh_token and sessionid.
	ClearAuthCookies()
}
