package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"golang.org/x/sync/singleflight"
)

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Gateway is the outbound HTTP client for the CMS backend. Every request
// carries "Authorization: Bearer <token>" when the token source has one.
//
// The 401 contract: the first 401 a request sees triggers a refresh through
// the bound Refresher, and the request is replayed once with the new token,
// so callers never observe the 401. Concurrent 401s share a single in-flight
// refresh; a second refresh call would invalidate the rotated token the
// first one just obtained. When refresh fails the caller gets an
// authentication error and the Refresher tears the session down.
type Gateway struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	refresher Refresher
	flight    singleflight.Group
	logger    Logger
	debug     bool
}

// GatewayOption customizes Gateway construction.
type GatewayOption func(*Gateway)

// WithHTTPClient replaces the underlying client (and its timeout).
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithGatewayLogger overrides the logger.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGatewayTimeout bounds every round-trip. Zero keeps the default.
func WithGatewayTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		if timeout > 0 {
			g.client.Timeout = timeout
		}
	}
}

// WithGatewayDebug dumps request payloads through the logger.
func WithGatewayDebug(debug bool) GatewayOption {
	return func(g *Gateway) {
		g.debug = debug
	}
}

// NewGateway returns a Gateway for baseURL with a 30 second default timeout.
func NewGateway(baseURL string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: DefaultRequestTimeout * time.Second,
		},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Bind attaches the session controller as both the token source and the
// refresher. Call it once from the composition root, after the controller
// is constructed.
func (g *Gateway) Bind(tokens TokenSource, refresher Refresher) {
	g.tokens = tokens
	g.refresher = refresher
}

// Do performs an authenticated request against the backend and decodes the
// envelope's data field into out (when out is non-nil). 401s are handled
// per the refresh-and-retry contract; every other failure is classified and
// returned without touching session state.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	return g.do(ctx, method, path, body, out, true)
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any, allowRetry bool) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to encode request body")
		}
		payload = data
	}

	if g.debug {
		g.logger.Debug("gateway request %s %s %s", method, path, print.MaybePrettyJSON(body))
	}

	status, data, message, err := g.roundTrip(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && allowRetry && g.refresher != nil {
		if err := g.refreshShared(ctx); err != nil {
			return newAuthenticationError(errorMessage(err)).
				WithMetadata(map[string]any{"path": path})
		}

		status, data, message, err = g.roundTrip(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return classifyResponse(status, message)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to decode response data")
		}
	}

	return nil
}

// roundTrip performs one HTTP exchange and unwraps the response envelope.
// A transport error (no response at all) comes back as a network error.
func (g *Gateway) roundTrip(ctx context.Context, method, path string, payload []byte) (int, json.RawMessage, string, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, nil, "", goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to build request")
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.tokens != nil {
		if token := g.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, "", newNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", newNetworkError(err)
	}

	env := envelope{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			// Non-envelope bodies (proxies, plain error pages) still classify
			// by status; the body is only useful for the message.
			env.Message = strings.TrimSpace(string(raw))
		}
	}

	return resp.StatusCode, env.Data, env.Message, nil
}

// refreshShared coalesces concurrent refresh attempts onto one call.
func (g *Gateway) refreshShared(ctx context.Context) error {
	_, err, shared := g.flight.Do("auth.refresh", func() (any, error) {
		return nil, g.refresher.Refresh(ctx)
	})
	if shared {
		g.logger.Debug("refresh coalesced with in-flight attempt")
	}
	return err
}
