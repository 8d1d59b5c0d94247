package dispatch

import (
	"context"

	"github.com/go-delivery-messaging/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) PushToDevice(ctx context.Context, sessionID string, p domain.PushPayload) error {
	return m.Called(ctx, sessionID, p).Error(0)
}
func (m *mockGateway) PushToTopic(ctx context.Context, p domain.PushPayload) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockGateway) SubscribeToTopic(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}
func (m *mockGateway) UnsubscribeFromTopic(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockLocalGateway struct {
	mockGateway
	owned map[string]bool
}

func (m *mockLocalGateway) Owns(sessionID string) bool { return m.owned[sessionID] }
