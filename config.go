package session

// SimpleConfig is a plain-struct Config implementation with sane defaults
// for the admin console. Zero values fall back to the defaults below.
type SimpleConfig struct {
	BaseURL              string
	RequestTimeout       int
	ContextKey           string
	LoginRoute           string
	DashboardRoute       string
	UnauthorizedRoute    string
	LoadingView          string
	RejectedRouteKey     string
	RejectedRouteDefault string
}

var _ Config = (*SimpleConfig)(nil)

// DefaultRequestTimeout bounds every network round-trip, in seconds.
const DefaultRequestTimeout = 30

func (c *SimpleConfig) GetBaseURL() string {
	return c.BaseURL
}

func (c *SimpleConfig) GetRequestTimeout() int {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetLoginRoute() string {
	if c.LoginRoute == "" {
		return "/login"
	}
	return c.LoginRoute
}

func (c *SimpleConfig) GetDashboardRoute() string {
	if c.DashboardRoute == "" {
		return "/dashboard"
	}
	return c.DashboardRoute
}

func (c *SimpleConfig) GetUnauthorizedRoute() string {
	if c.UnauthorizedRoute == "" {
		return "/unauthorized"
	}
	return c.UnauthorizedRoute
}

func (c *SimpleConfig) GetLoadingView() string {
	if c.LoadingView == "" {
		return "auth/loading"
	}
	return c.LoadingView
}

func (c *SimpleConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return c.RejectedRouteKey
}

func (c *SimpleConfig) GetRejectedRouteDefault() string {
	if c.RejectedRouteDefault == "" {
		return c.GetDashboardRoute()
	}
	return c.RejectedRouteDefault
}
