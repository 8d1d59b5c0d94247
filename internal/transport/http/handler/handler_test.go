package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-delivery-messaging/internal/application/messaging"
	"github.com/go-delivery-messaging/internal/domain"
	jwtinfra "github.com/go-delivery-messaging/internal/infrastructure/jwt"
	"github.com/go-delivery-messaging/internal/infrastructure/jwt/jwttest"
	"github.com/go-delivery-messaging/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
)

// --- mock ---

type mockMessagingSvc struct{ mock.Mock }

func (m *mockMessagingSvc) Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error {
	return m.Called(ctx, caller, sessionID).Error(0)
}
func (m *mockMessagingSvc) Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error {
	return m.Called(ctx, caller, sessionID).Error(0)
}
func (m *mockMessagingSvc) MarkAsRead(ctx context.Context, caller domain.Caller, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, caller, messageID)
	if msg, _ := args.Get(0).(*domain.Message); msg != nil {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMessagingSvc) List(ctx context.Context, caller domain.Caller, q messaging.ListQuery) (*domain.MessagePage, error) {
	args := m.Called(ctx, caller, q)
	if p, _ := args.Get(0).(*domain.MessagePage); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMessagingSvc) Send(ctx context.Context, req domain.NotificationRequest) (*domain.Message, error) {
	args := m.Called(ctx, req)
	if msg, _ := args.Get(0).(*domain.Message); msg != nil {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// bearerReq builds a request with a signed Bearer token for the given userID and role.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string, body []byte) *http.Request {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+jwttest.Token(t, p, userID, role))
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

var (
	client = domain.Caller{UserID: "42", Role: domain.RoleClient}
	staff  = domain.Caller{UserID: "7", Role: domain.RoleEmployee}
)
