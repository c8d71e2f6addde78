package session

import (
	"context"
	stderrors "errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeNetworkError marks transport failures: no response was received.
	TextCodeNetworkError = "NETWORK_ERROR"
	// TextCodeAuthenticationFailed marks a 401 that survived (or could not
	// attempt) a refresh.
	TextCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	// TextCodeAuthorizationFailed marks a 403 from the server.
	TextCodeAuthorizationFailed = "AUTHORIZATION_FAILED"
	// TextCodeValidationFailed marks a 422 with field-level errors.
	TextCodeValidationFailed = "VALIDATION_FAILED"
	// TextCodeRateLimited marks a 429.
	TextCodeRateLimited = "RATE_LIMITED"
	// TextCodeServerError marks any 5xx.
	TextCodeServerError = "SERVER_ERROR"
	// TextCodeSessionConflict marks an operation issued from the wrong phase,
	// or an async completion that arrived after the session it belonged to
	// was torn down.
	TextCodeSessionConflict = "SESSION_CONFLICT"
)

// ErrSessionSuperseded is returned when a login or refresh completed after
// the session it was started under had already been cleared. The completion
// is discarded rather than applied.
var ErrSessionSuperseded = goerrors.New("session superseded before completion", goerrors.CategoryConflict).
	WithTextCode(TextCodeSessionConflict).
	WithCode(goerrors.CodeConflict)

// ErrInvalidPhase is returned when an operation is not legal in the current
// lifecycle phase (e.g. login while already authenticated).
var ErrInvalidPhase = goerrors.New("operation not allowed in current session phase", goerrors.CategoryConflict).
	WithTextCode(TextCodeSessionConflict).
	WithCode(goerrors.CodeConflict)

// newNetworkError wraps a transport failure: timeout, DNS, refused
// connection. No response was received, so session state is never mutated
// on this path (refresh being the one exception, handled by the caller).
func newNetworkError(err error) *goerrors.Error {
	msg := "no response from server"
	if stderrors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(TextCodeNetworkError)
}

func newAuthenticationError(message string) *goerrors.Error {
	if message == "" {
		message = "authentication failed"
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(TextCodeAuthenticationFailed).
		WithCode(goerrors.CodeUnauthorized)
}

func newAuthorizationError(message string) *goerrors.Error {
	if message == "" {
		message = "access denied"
	}
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithTextCode(TextCodeAuthorizationFailed).
		WithCode(goerrors.CodeForbidden)
}

// classifyResponse maps a non-2xx backend response onto the session error
// taxonomy. message is the server-provided envelope message when present.
func classifyResponse(status int, message string) *goerrors.Error {
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized:
		return newAuthenticationError(message).
			WithMetadata(map[string]any{"status": status})
	case status == http.StatusForbidden:
		return goerrors.New(message, goerrors.CategoryAuthz).
			WithTextCode(TextCodeAuthorizationFailed).
			WithCode(goerrors.CodeForbidden).
			WithMetadata(map[string]any{"status": status})
	case status == http.StatusUnprocessableEntity:
		return goerrors.New(message, goerrors.CategoryValidation).
			WithTextCode(TextCodeValidationFailed).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"status": status})
	case status == http.StatusTooManyRequests:
		return goerrors.New(message, goerrors.CategoryRateLimit).
			WithTextCode(TextCodeRateLimited).
			WithMetadata(map[string]any{"status": status})
	case status >= 500:
		return goerrors.New(message, goerrors.CategoryInternal).
			WithTextCode(TextCodeServerError).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{"status": status})
	default:
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"status": status})
	}
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsNetworkError will check for transport failures
func IsNetworkError(err error) bool {
	return hasTextCode(err, TextCodeNetworkError)
}

// IsAuthenticationError will check for terminal 401s
func IsAuthenticationError(err error) bool {
	return hasTextCode(err, TextCodeAuthenticationFailed)
}

// IsAuthorizationError will check for 403s
func IsAuthorizationError(err error) bool {
	return hasTextCode(err, TextCodeAuthorizationFailed)
}

// IsValidationError will check for field-level 422s. These are returned to
// the calling form and never surfaced globally.
func IsValidationError(err error) bool {
	return hasTextCode(err, TextCodeValidationFailed)
}

// IsRateLimitError will check for 429s
func IsRateLimitError(err error) bool {
	return hasTextCode(err, TextCodeRateLimited)
}

// IsServerError will check for 5xx responses
func IsServerError(err error) bool {
	return hasTextCode(err, TextCodeServerError)
}

// errorMessage extracts the user-presentable message from an error,
// preferring the rich error's message over Error() noise.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}
