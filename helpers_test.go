package session_test

import (
	"encoding/json"
	"net/http"
	"testing"

	session "github.com/radpanel/go-session"

	"github.com/google/uuid"
)

type envelopeBody struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelopeBody{
		Success: status >= 200 && status < 300,
		Data:    data,
		Message: message,
	})
}

func testUser() *session.User {
	return &session.User{
		ID:        uuid.New(),
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "dana@example.com",
		Role:      session.RoleRadiologist,
		Permissions: []session.Permission{
			session.PermReportsView,
		},
	}
}

type loginBody struct {
	User         *session.User `json:"user"`
	Token        string        `json:"token"`
	RefreshToken string        `json:"refreshToken"`
}

type refreshBody struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type meBody struct {
	User *session.User `json:"user"`
}

// newStack wires a controller, memory store, and gateway against baseURL,
// with recording sink and notifier attached.
func newStack(t *testing.T, baseURL string) (*session.Controller, *session.MemoryStore, *recordingSink, *recordingNotifier) {
	t.Helper()

	store := session.NewMemoryStore()
	gw := session.NewGateway(baseURL)
	sink := &recordingSink{}
	notifier := &recordingNotifier{}

	ctrl := session.NewController(&session.SimpleConfig{BaseURL: baseURL}, store, gw,
		session.WithControllerActivitySink(sink),
		session.WithControllerNotifier(notifier),
	)

	return ctrl, store, sink, notifier
}
