package session

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FiberGuard adapts the route guard to a raw fiber app, for deployments
// that mount the admin console without the router abstraction.
type FiberGuard struct {
	ctrl   *Controller
	cfg    Config
	Logger Logger
}

// NewFiberGuard builds a fiber-native guard over the controller.
func NewFiberGuard(ctrl *Controller, cfg Config) *FiberGuard {
	return &FiberGuard{
		ctrl:   ctrl,
		cfg:    cfg,
		Logger: defLogger{},
	}
}

// Protected returns a fiber handler enforcing the requirement. Register it
// ahead of the route handlers it gates.
func (g *FiberGuard) Protected(req Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := g.ctrl.Current()

		switch snap.Phase {
		case PhaseBootstrapping, PhaseAuthenticating, PhaseRefreshing:
			return c.Render(g.cfg.GetLoadingView(), fiber.Map{
				"phase": string(snap.Phase),
			})

		case PhaseAnonymous:
			if req.Optional {
				return c.Next()
			}
			g.setRedirect(c)
			return c.Redirect(g.cfg.GetLoginRoute(), g.redirectStatus(c))

		case PhaseAuthenticated:
			if req.Role != "" && !HasRole(snap.User, req.Role) {
				return c.Redirect(g.cfg.GetUnauthorizedRoute(), g.redirectStatus(c))
			}
			if req.Permission != "" && !HasPermission(snap.User, req.Permission) {
				return c.Redirect(g.cfg.GetUnauthorizedRoute(), g.redirectStatus(c))
			}

			c.Locals(g.cfg.GetContextKey(), snap.User)
			c.SetUserContext(WithContext(c.UserContext(), snap.User))
			return c.Next()
		}

		g.Logger.Error("Fiber guard observed unknown phase: %s", snap.Phase)
		return c.Redirect(g.cfg.GetLoginRoute(), g.redirectStatus(c))
	}
}

// GetFiberUser extracts the User placed in fiber locals by the guard.
func GetFiberUser(c *fiber.Ctx, key string) (*User, bool) {
	if key == "" {
		key = "user"
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}

// GetRedirectOrDefault resolves the post-login destination from the
// rejected route cookie, the Referer header, or the configured default.
func (g *FiberGuard) GetRedirectOrDefault(c *fiber.Ctx) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	r := c.Cookies(rejectedRoute, string(c.Request().Header.Referer()))
	if r == "" {
		r = g.cfg.GetRejectedRouteDefault()
	}
	g.cookieDel(c, rejectedRoute)
	return r
}

func (g *FiberGuard) setRedirect(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     g.cfg.GetRejectedRouteKey(),
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *FiberGuard) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *FiberGuard) redirectStatus(c *fiber.Ctx) int {
	if c.Method() == fiber.MethodGet {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
