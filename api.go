package session

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Auth API endpoints. The backend wraps every response in the
// {success, data, message} envelope handled by the Gateway.
const (
	routeAuthLogin          = "/auth/login"
	routeAuthLogout         = "/auth/logout"
	routeAuthMe             = "/auth/me"
	routeAuthRefresh        = "/auth/refresh"
	routeAuthForgotPassword = "/auth/forgot-password"
	routeAuthResetPassword  = "/auth/reset-password"
	routeAuthChangePassword = "/auth/change-password"
)

// LoginRequest payload
type LoginRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Token,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"currentPassword"`
	NewPassword     string `form:"new_password" json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.CurrentPassword,
			validation.Required,
		),
		validation.Field(
			&r.NewPassword,
			validation.Required,
		),
	)
}

type loginResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type meResponse struct {
	User *User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthAPI wraps the backend's auth endpoints. All calls go through the
// Gateway without the 401 retry stage: a 401 from these endpoints is a
// definitive answer, not a stale-token symptom.
type AuthAPI struct {
	gw *Gateway
}

// NewAuthAPI returns an API bound to gw.
func NewAuthAPI(gw *Gateway) *AuthAPI {
	return &AuthAPI{gw: gw}
}

func (a *AuthAPI) Login(ctx context.Context, payload LoginRequest) (*loginResponse, error) {
	out := &loginResponse{}
	if err := a.gw.do(ctx, http.MethodPost, routeAuthLogin, payload, out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.gw.do(ctx, http.MethodPost, routeAuthLogout, nil, nil, false)
}

func (a *AuthAPI) Me(ctx context.Context) (*User, error) {
	out := &meResponse{}
	if err := a.gw.do(ctx, http.MethodGet, routeAuthMe, nil, out, false); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	out := &refreshResponse{}
	payload := refreshRequest{RefreshToken: refreshToken}
	if err := a.gw.do(ctx, http.MethodPost, routeAuthRefresh, payload, out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, payload ForgotPasswordRequest) error {
	return a.gw.do(ctx, http.MethodPost, routeAuthForgotPassword, payload, nil, false)
}

func (a *AuthAPI) ResetPassword(ctx context.Context, payload ResetPasswordRequest) error {
	return a.gw.do(ctx, http.MethodPost, routeAuthResetPassword, payload, nil, false)
}

func (a *AuthAPI) ChangePassword(ctx context.Context, payload ChangePasswordRequest) error {
	return a.gw.do(ctx, http.MethodPost, routeAuthChangePassword, payload, nil, true)
}

