package session

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// Phase is the controller's position in the session lifecycle
type Phase string

const (
	// PhaseBootstrapping is the initial phase while stored credentials are verified
	PhaseBootstrapping Phase = "bootstrapping"
	// PhaseAnonymous means no authenticated user
	PhaseAnonymous Phase = "anonymous"
	// PhaseAuthenticating is transient while a login call is in flight
	PhaseAuthenticating Phase = "authenticating"
	// PhaseAuthenticated means a user is signed in and tokens are persisted
	PhaseAuthenticated Phase = "authenticated"
	// PhaseRefreshing is transient while the token pair is being rotated
	PhaseRefreshing Phase = "refreshing"
)

// TokenPair is the access/refresh credential pair issued at login. Both
// values travel together: the credential store never persists one without
// the other.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Zero reports whether neither token is set.
func (p TokenPair) Zero() bool {
	return p.Access == "" && p.Refresh == ""
}

// Complete reports whether both tokens are set.
func (p TokenPair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// User is the authenticated identity as returned by the backend
type User struct {
	ID          uuid.UUID    `json:"id,omitempty"`
	FirstName   string       `json:"first_name,omitempty"`
	LastName    string       `json:"last_name,omitempty"`
	Email       string       `json:"email,omitempty"`
	Role        Role         `json:"role,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// FullName joins first and last name for display purposes.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Clone returns a deep copy so readers can hold a user without sharing the
// controller's single-writer state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if len(u.Permissions) > 0 {
		out.Permissions = append([]Permission(nil), u.Permissions...)
	}
	return &out
}

// ProfileUpdate carries the fields a signed-in user may edit. Empty fields
// are left untouched by the merge.
type ProfileUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (p ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(
			&p.Email,
			is.Email,
		),
	)
}

// ApplyTo merges the non-empty fields into user. This is the explicit "apply
// server response to local cache" operation: it mutates the local projection
// only, any persisted write is the caller's concern.
func (p ProfileUpdate) ApplyTo(user *User) {
	if user == nil {
		return
	}
	if p.FirstName != "" {
		user.FirstName = p.FirstName
	}
	if p.LastName != "" {
		user.LastName = p.LastName
	}
	if p.Email != "" {
		user.Email = p.Email
	}
}
