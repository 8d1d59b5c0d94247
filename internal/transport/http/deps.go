package http

import (
	"context"

	"github.com/go-delivery-messaging/internal/application/messaging"
	"github.com/go-delivery-messaging/internal/domain"
	jwtinfra "github.com/go-delivery-messaging/internal/infrastructure/jwt"
	"github.com/go-delivery-messaging/internal/transport/ws"
)

// MessagingService is the interface the router requires from the messaging service.
type MessagingService interface {
	Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error
	Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error
	MarkAsRead(ctx context.Context, caller domain.Caller, messageID string) (*domain.Message, error)
	List(ctx context.Context, caller domain.Caller, q messaging.ListQuery) (*domain.MessagePage, error)
	Send(ctx context.Context, req domain.NotificationRequest) (*domain.Message, error)
}

// TokenVerifier is the interface the router requires from the JWT provider.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Deps holds the dependencies of the router.
type Deps struct {
	Messaging   MessagingService
	JWTProvider TokenVerifier
	Hub         *ws.Hub
}
