package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-delivery-messaging/internal/application/messaging"
	"github.com/go-delivery-messaging/internal/config"
	"github.com/go-delivery-messaging/internal/domain"
	jwtinfra "github.com/go-delivery-messaging/internal/infrastructure/jwt"
	"github.com/go-delivery-messaging/internal/infrastructure/jwt/jwttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockMessaging struct{ mock.Mock }

func (m *mockMessaging) Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error {
	return m.Called(ctx, caller, sessionID).Error(0)
}
func (m *mockMessaging) Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error {
	return m.Called(ctx, caller, sessionID).Error(0)
}
func (m *mockMessaging) MarkAsRead(ctx context.Context, caller domain.Caller, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, caller, messageID)
	if msg, _ := args.Get(0).(*domain.Message); msg != nil {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMessaging) List(ctx context.Context, caller domain.Caller, q messaging.ListQuery) (*domain.MessagePage, error) {
	args := m.Called(ctx, caller, q)
	if p, _ := args.Get(0).(*domain.MessagePage); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMessaging) Send(ctx context.Context, req domain.NotificationRequest) (*domain.Message, error) {
	args := m.Called(ctx, req)
	if msg, _ := args.Get(0).(*domain.Message); msg != nil {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func testRouter(t *testing.T, svc *mockMessaging) (http.Handler, *jwtinfra.Provider) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	p := jwttest.NewProvider(t)
	cfg := &config.Config{AllowedOrigins: []string{"*"}, SubscribeRateLimit: 1000, SubscribeRateBurst: 1000}
	return NewRouter(ctx, cfg, &Deps{Messaging: svc, JWTProvider: p}), p
}

func do(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestRouter_HealthIsPublic(t *testing.T) {
	h, _ := testRouter(t, &mockMessaging{})
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/health-check/ping", "", "").Code)
}

func TestRouter_MailboxRequiresAuth(t *testing.T) {
	h, _ := testRouter(t, &mockMessaging{})
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/v1/messages", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPatch, "/v1/messages/m1", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/v1/subscribe", "", `{"session_id":"x"}`).Code)
}

func TestRouter_MarkAsReadRoutesID(t *testing.T) {
	svc := &mockMessaging{}
	h, p := testRouter(t, svc)
	caller := domain.Caller{UserID: "42", Role: domain.RoleClient}
	svc.On("MarkAsRead", mock.Anything, caller, "01HZX").Return(&domain.Message{MessageID: "01HZX", Read: true}, nil)

	rr := do(t, h, http.MethodPatch, "/v1/messages/01HZX", jwttest.Token(t, p, "42", domain.RoleClient), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestRouter_NotificationsStaffOnly(t *testing.T) {
	svc := &mockMessaging{}
	h, p := testRouter(t, svc)
	svc.On("Send", mock.Anything, mock.Anything).Return(&domain.Message{MessageID: "m1", ForEmployee: true}, nil)

	body := `{"text":"New order"}`
	assert.Equal(t, http.StatusForbidden,
		do(t, h, http.MethodPost, "/v1/notifications", jwttest.Token(t, p, "42", domain.RoleClient), body).Code)
	assert.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/v1/notifications", jwttest.Token(t, p, "1", domain.RoleAdmin), body).Code)
	svc.AssertNumberOfCalls(t, "Send", 1)
}

func TestRouter_SubscribeRateLimited(t *testing.T) {
	svc := &mockMessaging{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := jwttest.NewProvider(t)
	cfg := &config.Config{AllowedOrigins: []string{"*"}, SubscribeRateLimit: 0.001, SubscribeRateBurst: 1}
	h := NewRouter(ctx, cfg, &Deps{Messaging: svc, JWTProvider: p})
	svc.On("Subscribe", mock.Anything, mock.Anything, "tok").Return(nil)

	token := jwttest.Token(t, p, "42", domain.RoleClient)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/subscribe", token, `{"session_id":"tok"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/v1/subscribe", token, `{"session_id":"tok"}`).Code)
}

func TestRouter_NoHubNoWebsocket(t *testing.T) {
	h, _ := testRouter(t, &mockMessaging{})
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/ws", "", "").Code)
}
