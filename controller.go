package session

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Snapshot is a read-only view of the session. User is only present while
// the session is authenticated and is a copy the caller may keep.
type Snapshot struct {
	Phase     Phase
	User      *User
	LastError string
}

// Authenticated reports whether a user is signed in.
func (s Snapshot) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

// Controller orchestrates the session lifecycle. It is the single writer of
// session state and of the credential store: UI components read snapshots
// via Current and request mutations through the methods below, never by
// touching state directly.
//
// One Controller is constructed per application start, in the
// bootstrapping phase; Boot resolves it to anonymous or authenticated.
type Controller struct {
	mu        sync.Mutex
	phase     Phase
	user      *User
	pair      TokenPair
	lastError string
	// epoch counts teardowns. Async completions capture it before their
	// network round-trip and discard themselves if it moved: a login that
	// lands after the user logged out must not re-authenticate them.
	epoch uint64

	store       CredentialStore
	api         *AuthAPI
	cfg         Config
	transitions map[Phase]map[Phase]struct{}
	now         func() time.Time
	logger      Logger
	sink        ActivitySink
	notifier    Notifier
}

var (
	_ TokenSource = (*Controller)(nil)
	_ Refresher   = (*Controller)(nil)
)

// ControllerOption customizes Controller construction.
type ControllerOption func(*Controller)

// WithControllerLogger overrides the logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithControllerClock injects a custom clock (useful for tests).
func WithControllerClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithControllerActivitySink sets the ActivitySink used to publish session events.
func WithControllerActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.sink = normalizeActivitySink(sink)
	}
}

// WithControllerNotifier sets the Notifier for user-facing notifications.
func WithControllerNotifier(notifier Notifier) ControllerOption {
	return func(c *Controller) {
		c.notifier = normalizeNotifier(notifier)
	}
}

// NewController wires the controller to its credential store and gateway.
// The gateway is bound back to the controller as token source and
// refresher, closing the 401 -> refresh -> retry loop.
func NewController(cfg Config, store CredentialStore, gw *Gateway, opts ...ControllerOption) *Controller {
	c := &Controller{
		phase: PhaseBootstrapping,
		store: store,
		api:   NewAuthAPI(gw),
		cfg:   cfg,
		transitions: map[Phase]map[Phase]struct{}{
			PhaseBootstrapping: {
				PhaseAnonymous:     {},
				PhaseAuthenticated: {},
			},
			PhaseAnonymous: {
				PhaseAuthenticating: {},
			},
			PhaseAuthenticating: {
				PhaseAuthenticated: {},
				PhaseAnonymous:     {},
			},
			PhaseAuthenticated: {
				PhaseRefreshing: {},
				PhaseAnonymous:  {},
			},
			PhaseRefreshing: {
				PhaseAuthenticated: {},
				PhaseAnonymous:     {},
			},
		},
		now:      time.Now,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		notifier: noopNotifier{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	gw.Bind(c, c)

	return c
}

// Current returns a snapshot of the session. The user copy is only present
// in the authenticated phase.
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:     c.phase,
		LastError: c.lastError,
	}
	if c.phase == PhaseAuthenticated {
		snap.User = c.user.Clone()
	}
	return snap
}

// AccessToken implements TokenSource for the Gateway.
func (c *Controller) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair.Access
}

// TokenInfo inspects the current access token's claims without verifying
// its signature. Returns nil when no token is held.
func (c *Controller) TokenInfo() (*TokenInfo, error) {
	c.mu.Lock()
	access := c.pair.Access
	c.mu.Unlock()

	if access == "" {
		return nil, nil
	}
	return InspectToken(access)
}

// NeedsRefresh reports whether the access token expires within leeway.
// Callers can use it to rotate proactively instead of waiting for a 401.
func (c *Controller) NeedsRefresh(leeway time.Duration) bool {
	info, err := c.TokenInfo()
	if err != nil || info == nil {
		return false
	}
	return info.ExpiresWithin(c.now(), leeway)
}

// Boot resolves the initial bootstrapping phase: an empty store goes
// straight to anonymous, a stored pair is verified against the backend.
// Verification failure is silent-recoverable: the store is cleared and the
// session lands in anonymous with no user-visible error.
func (c *Controller) Boot(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseBootstrapping {
		c.mu.Unlock()
		return ErrInvalidPhase.WithMetadata(map[string]any{
			"phase": c.phase,
			"op":    "boot",
		})
	}
	c.mu.Unlock()

	pair, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("Boot credential load error: %v", err)
		pair = nil
	}

	if pair == nil {
		c.mu.Lock()
		c.setPhase(PhaseAnonymous)
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.pair = *pair
	c.mu.Unlock()

	user, err := c.api.Me(ctx)
	if err != nil || user == nil {
		// Stale or revoked credentials. Fall back to anonymous quietly.
		c.logger.Debug("Boot verification failed, clearing session: %v", err)
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Warn("Boot credential clear error: %v", clearErr)
		}
		c.mu.Lock()
		c.pair = TokenPair{}
		c.setPhase(PhaseAnonymous)
		c.mu.Unlock()

		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventBootCleared,
			FromPhase: PhaseBootstrapping,
			ToPhase:   PhaseAnonymous,
		})
		return nil
	}

	c.mu.Lock()
	c.user = user
	c.setPhase(PhaseAuthenticated)
	c.mu.Unlock()

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventBootRestored,
		UserID:    user.ID.String(),
		FromPhase: PhaseBootstrapping,
		ToPhase:   PhaseAuthenticated,
	})
	return nil
}

// Login authenticates against the backend and, on success, persists the
// issued token pair and moves the session to authenticated. The error is
// returned to the caller (a login form renders it field-level); lastError
// carries the server message for the global snapshot.
func (c *Controller) Login(ctx context.Context, payload LoginRequest) error {
	if err := goerrors.ValidateWithOzzo(payload.Validate); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseAnonymous {
		c.mu.Unlock()
		return ErrInvalidPhase.WithMetadata(map[string]any{
			"phase": c.phase,
			"op":    "login",
		})
	}
	c.setPhase(PhaseAuthenticating)
	started := c.epoch
	c.mu.Unlock()

	resp, err := c.api.Login(ctx, payload)

	c.mu.Lock()
	if c.epoch != started {
		// The session was torn down while the call was in flight. Applying
		// the result would re-authenticate a user who already navigated to
		// logout, so the completion is dropped.
		c.mu.Unlock()
		return ErrSessionSuperseded
	}

	if err != nil {
		c.lastError = errorMessage(err)
		c.setPhase(PhaseAnonymous)
		c.mu.Unlock()

		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			FromPhase: PhaseAuthenticating,
			ToPhase:   PhaseAnonymous,
			Metadata: map[string]any{
				"email": payload.Email,
				"error": errorMessage(err),
			},
		})
		return err
	}

	pair := TokenPair{Access: resp.Token, Refresh: resp.RefreshToken}
	if !pair.Complete() || resp.User == nil {
		c.lastError = "login response missing credentials"
		c.setPhase(PhaseAnonymous)
		c.mu.Unlock()
		return goerrors.New("login response missing credentials", goerrors.CategoryInternal).
			WithTextCode(TextCodeServerError)
	}

	if err := c.store.Save(ctx, pair); err != nil {
		c.lastError = errorMessage(err)
		c.setPhase(PhaseAnonymous)
		c.mu.Unlock()
		return err
	}

	c.pair = pair
	c.user = resp.User
	c.lastError = ""
	c.setPhase(PhaseAuthenticated)
	user := c.user.Clone()
	c.mu.Unlock()

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		FromPhase: PhaseAuthenticating,
		ToPhase:   PhaseAuthenticated,
		Metadata: map[string]any{
			"email": user.Email,
		},
	})
	c.notify(ctx, Notification{
		Level:   NotifySuccess,
		Message: "Welcome back, " + user.FullName(),
	})
	return nil
}

// Logout tears the session down. The backend call is best-effort: a network
// failure never blocks the local transition, and calling Logout on an
// anonymous session is a no-op.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseAnonymous {
		c.mu.Unlock()
		return nil
	}
	from := c.phase
	var userID string
	if c.user != nil {
		userID = c.user.ID.String()
	}
	c.mu.Unlock()

	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn("Logout backend call failed, clearing locally: %v", err)
	}

	c.teardown(ctx)

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    userID,
		FromPhase: from,
		ToPhase:   PhaseAnonymous,
	})
	c.notify(ctx, Notification{
		Level:   NotifyInfo,
		Message: "You have been signed out",
	})
	return nil
}

// Refresh exchanges the refresh token for a new access token, rotating the
// stored refresh token when the backend issues one. Failure is fatal to the
// session: the store is cleared and the session is forced to anonymous.
// The Gateway coalesces concurrent invocations, so at most one exchange is
// in flight at a time.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseAuthenticated || c.pair.Refresh == "" {
		c.mu.Unlock()
		return newAuthenticationError("no session to refresh")
	}
	c.setPhase(PhaseRefreshing)
	started := c.epoch
	refreshToken := c.pair.Refresh
	c.mu.Unlock()

	resp, err := c.api.Refresh(ctx, refreshToken)

	c.mu.Lock()
	if c.epoch != started {
		c.mu.Unlock()
		return ErrSessionSuperseded
	}

	if err != nil {
		var userID string
		if c.user != nil {
			userID = c.user.ID.String()
		}
		c.mu.Unlock()

		c.teardown(ctx)
		c.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventRefreshFailure,
			UserID:    userID,
			FromPhase: PhaseRefreshing,
			ToPhase:   PhaseAnonymous,
			Metadata: map[string]any{
				"error": errorMessage(err),
			},
		})
		c.notify(ctx, Notification{
			Level:   NotifyError,
			Message: "Your session has expired, please sign in again",
		})
		return newAuthenticationError(errorMessage(err))
	}

	pair := c.pair
	pair.Access = resp.Token
	if resp.RefreshToken != "" {
		pair.Refresh = resp.RefreshToken
	}

	if err := c.store.Save(ctx, pair); err != nil {
		c.mu.Unlock()
		c.teardown(ctx)
		return err
	}

	c.pair = pair
	c.setPhase(PhaseAuthenticated)
	var userID string
	if c.user != nil {
		userID = c.user.ID.String()
	}
	c.mu.Unlock()

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRefreshSuccess,
		UserID:    userID,
		FromPhase: PhaseRefreshing,
		ToPhase:   PhaseAuthenticated,
		Metadata: map[string]any{
			"rotated": resp.RefreshToken != "",
		},
	})
	return nil
}

// UpdateProfile merges the given fields into the cached user. This is a
// local projection only: persisting the change is the profile form's
// concern, and it applies the server's response here once it has one.
func (c *Controller) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	if err := goerrors.ValidateWithOzzo(update.Validate); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseAuthenticated {
		c.mu.Unlock()
		return ErrInvalidPhase.WithMetadata(map[string]any{
			"phase": c.phase,
			"op":    "update_profile",
		})
	}
	update.ApplyTo(c.user)
	userID := c.user.ID.String()
	c.mu.Unlock()

	c.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		UserID:    userID,
		FromPhase: PhaseAuthenticated,
		ToPhase:   PhaseAuthenticated,
	})
	return nil
}

// ForgotPassword requests a password reset email. Stateless pass-through:
// the session phase is never touched.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	payload := ForgotPasswordRequest{Email: email}
	if err := goerrors.ValidateWithOzzo(payload.Validate); err != nil {
		return err
	}

	err := c.api.ForgotPassword(ctx, payload)
	c.reportPassthrough(ctx, ActivityEventPasswordForgot, "Password reset email sent", err)
	return err
}

// ResetPassword finalizes a reset started from the email link.
func (c *Controller) ResetPassword(ctx context.Context, token, password string) error {
	payload := ResetPasswordRequest{Token: token, Password: password}
	if err := goerrors.ValidateWithOzzo(payload.Validate); err != nil {
		return err
	}

	err := c.api.ResetPassword(ctx, payload)
	c.reportPassthrough(ctx, ActivityEventPasswordReset, "Password has been reset", err)
	return err
}

// ChangePassword updates the signed-in user's password.
func (c *Controller) ChangePassword(ctx context.Context, current, updated string) error {
	payload := ChangePasswordRequest{CurrentPassword: current, NewPassword: updated}
	if err := goerrors.ValidateWithOzzo(payload.Validate); err != nil {
		return err
	}

	err := c.api.ChangePassword(ctx, payload)
	c.reportPassthrough(ctx, ActivityEventPasswordChanged, "Password updated", err)
	return err
}

// teardown clears the store and returns the session to anonymous. Every
// teardown bumps the epoch so stale completions discard themselves.
func (c *Controller) teardown(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("Credential clear error during teardown: %v", err)
	}

	c.mu.Lock()
	c.pair = TokenPair{}
	c.user = nil
	c.lastError = ""
	c.epoch++
	c.setPhase(PhaseAnonymous)
	c.mu.Unlock()
}

// setPhase validates the transition against the lifecycle graph. Callers
// hold the lock. An illegal hop is a bug; it is logged and refused.
func (c *Controller) setPhase(to Phase) {
	if c.phase == to {
		return
	}
	if allowed, ok := c.transitions[c.phase]; ok {
		if _, legal := allowed[to]; legal {
			c.phase = to
			return
		}
	}
	c.logger.Error("Illegal phase transition refused: %s -> %s", c.phase, to)
}

func (c *Controller) reportPassthrough(ctx context.Context, event ActivityEventType, successMsg string, err error) {
	if err == nil {
		c.recordActivity(ctx, ActivityEvent{EventType: event})
		c.notify(ctx, Notification{Level: NotifySuccess, Message: successMsg})
		return
	}

	c.recordActivity(ctx, ActivityEvent{
		EventType: event,
		Metadata:  map[string]any{"error": errorMessage(err)},
	})

	// Validation errors go back to the form; everything else surfaces as a
	// transient notification.
	if !IsValidationError(err) {
		c.notify(ctx, Notification{Level: NotifyError, Message: errorMessage(err)})
	}
}

func (c *Controller) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = c.now()
	}

	sink := normalizeActivitySink(c.sink)
	if err := sink.Record(ctx, event); err != nil {
		c.logger.Warn("activity sink record error: %v", err)
	}
}

func (c *Controller) notify(ctx context.Context, n Notification) {
	notifier := normalizeNotifier(c.notifier)
	if err := notifier.Notify(ctx, n); err != nil {
		c.logger.Warn("notifier error: %v", err)
	}
}
