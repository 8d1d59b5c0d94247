package dispatch

import (
	"context"
	"errors"

	"github.com/go-delivery-messaging/internal/domain"
)

// LocalGateway is a gateway that only reaches sessions it currently holds,
// such as live websocket connections of this process.
type LocalGateway interface {
	Gateway
	Owns(sessionID string) bool
}

// Routed sends device-level calls to the local gateway when it owns the session
// and to the remote provider otherwise. Topic pushes go to both.
// Either side may be nil.
type Routed struct {
	local  LocalGateway
	remote Gateway
}

func NewRouted(local LocalGateway, remote Gateway) *Routed {
	return &Routed{local: local, remote: remote}
}

var errNoRoute = errors.New("no gateway can reach session")

func (r *Routed) route(sessionID string) (Gateway, error) {
	if r.local != nil && r.local.Owns(sessionID) {
		return r.local, nil
	}
	if r.remote != nil {
		return r.remote, nil
	}
	return nil, errNoRoute
}

func (r *Routed) PushToDevice(ctx context.Context, sessionID string, p domain.PushPayload) error {
	gw, err := r.route(sessionID)
	if err != nil {
		return err
	}
	return gw.PushToDevice(ctx, sessionID, p)
}

func (r *Routed) PushToTopic(ctx context.Context, p domain.PushPayload) error {
	var errs []error
	if r.local != nil {
		errs = append(errs, r.local.PushToTopic(ctx, p))
	}
	if r.remote != nil {
		errs = append(errs, r.remote.PushToTopic(ctx, p))
	}
	return errors.Join(errs...)
}

func (r *Routed) SubscribeToTopic(ctx context.Context, sessionID string) error {
	gw, err := r.route(sessionID)
	if err != nil {
		return err
	}
	return gw.SubscribeToTopic(ctx, sessionID)
}

func (r *Routed) UnsubscribeFromTopic(ctx context.Context, sessionID string) error {
	gw, err := r.route(sessionID)
	if err != nil {
		return err
	}
	return gw.UnsubscribeFromTopic(ctx, sessionID)
}
