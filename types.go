package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore persists the access/refresh token pair between application
// starts. Implementations must keep the pairing invariant: a load never
// observes exactly one of the two tokens. A half-pair found on disk is
// corruption and is cleared before Load returns.
type CredentialStore interface {
	// Save writes both tokens atomically from the caller's perspective.
	Save(ctx context.Context, pair TokenPair) error
	// Load returns the stored pair, or nil when the store is empty. If only
	// one token is present both are cleared and nil is returned.
	Load(ctx context.Context) (*TokenPair, error)
	// Clear removes both tokens. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}

// TokenSource exposes the current access token to the Gateway. An empty
// string means no credential is attached to outbound requests.
type TokenSource interface {
	AccessToken() string
}

// Refresher exchanges the refresh token for a new access token. The Gateway
// invokes it on the first 401 of a request; the Controller implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config holds session options
type Config interface {
	GetBaseURL() string
	GetRequestTimeout() int
	GetContextKey() string
	GetLoginRoute() string
	GetDashboardRoute() string
	GetUnauthorizedRoute() string
	GetLoadingView() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
