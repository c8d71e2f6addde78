package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Requirement describes what a guarded route demands of the session.
// Zero value admits any authenticated user. Optional admits anonymous
// requests too, without injecting a user.
type Requirement struct {
	Role       Role
	Permission Permission
	Optional   bool
}

// RouteGuard gates router handlers on the session lifecycle: transient
// phases render a loading placeholder, anonymous requests are bounced to
// the login route with the rejected route recorded in a cookie, and
// authenticated requests are checked against the route's Requirement
// before the user is injected into the request context.
type RouteGuard struct {
	ctrl   *Controller
	cfg    Config
	Debug  bool
	Logger Logger
	// ErrorHandler receives authorization failures. The default redirects
	// to the unauthorized route.
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteGuard builds a guard over the controller's session snapshots.
func NewRouteGuard(ctrl *Controller, cfg Config) *RouteGuard {
	g := &RouteGuard{
		ctrl:   ctrl,
		cfg:    cfg,
		Logger: defLogger{},
	}
	g.ErrorHandler = g.defaultErrHandler
	return g
}

// Protected returns middleware enforcing the given requirement.
func (g *RouteGuard) Protected(req Requirement) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			return g.handle(ctx, req, next)
		}
	}
}

// Authenticated is Protected with no role or permission requirement.
func (g *RouteGuard) Authenticated() router.MiddlewareFunc {
	return g.Protected(Requirement{})
}

func (g *RouteGuard) handle(ctx router.Context, req Requirement, next router.HandlerFunc) error {
	snap := g.ctrl.Current()

	if g.Debug {
		g.Logger.Debug("Guard snapshot: %s", print.MaybePrettyJSON(map[string]any{
			"phase": snap.Phase,
			"path":  ctx.OriginalURL(),
		}))
	}

	switch snap.Phase {
	case PhaseBootstrapping, PhaseAuthenticating, PhaseRefreshing:
		// Session resolution in flight. Hold the route behind the loading
		// view rather than guessing at an admission decision.
		return ctx.Render(g.cfg.GetLoadingView(), router.ViewContext{
			"phase": string(snap.Phase),
		})

	case PhaseAnonymous:
		if req.Optional {
			return next(ctx)
		}

		g.SetRedirect(ctx)
		return ctx.Redirect(g.cfg.GetLoginRoute(), g.redirectStatus(ctx))

	case PhaseAuthenticated:
		if err := g.authorize(snap.User, req); err != nil {
			return g.ErrorHandler(ctx, err)
		}

		ctx.Locals(g.cfg.GetContextKey(), snap.User)
		ctx.SetContext(WithContext(ctx.Context(), snap.User))
		return next(ctx)
	}

	g.Logger.Error("Guard observed unknown phase: %s", snap.Phase)
	return ctx.Redirect(g.cfg.GetLoginRoute(), g.redirectStatus(ctx))
}

func (g *RouteGuard) authorize(user *User, req Requirement) error {
	if req.Role != "" && !HasRole(user, req.Role) {
		return newAuthorizationError("role not allowed").WithMetadata(map[string]any{
			"required_role": req.Role,
			"user_role":     user.Role,
		})
	}

	if req.Permission != "" && !HasPermission(user, req.Permission) {
		return newAuthorizationError("missing permission").WithMetadata(map[string]any{
			"required_permission": req.Permission,
			"user_role":           user.Role,
		})
	}

	return nil
}

// GetRedirect returns the rejected route recorded before a login bounce
// and deletes the cookie. Falls back to def when none was recorded.
func (g *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// GetRedirectOrDefault resolves the post-login destination: recorded
// rejected route, then the Referer header, then the configured default.
func (g *RouteGuard) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.cfg.GetRejectedRouteDefault()
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// SetRedirect records the originally requested URL so login can restore it.
func (g *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	g.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) redirectStatus(ctx router.Context) int {
	if ctx.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuthz, "Access denied").
			WithCode(errors.CodeForbidden)
	}

	g.Logger.Info(
		"Authorization refused, redirecting",
		"error", richErr.Message,
		"details", print.MaybePrettyJSON(richErr.Metadata),
		"path", c.OriginalURL(),
	)

	return c.Redirect(g.cfg.GetUnauthorizedRoute(), g.redirectStatus(c))
}
