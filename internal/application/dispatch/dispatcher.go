package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-delivery-messaging/internal/domain"
)

// Gateway is an external push provider. Session ids address single devices;
// the staff topic reaches every subscribed staff session at once.
type Gateway interface {
	PushToDevice(ctx context.Context, sessionID string, p domain.PushPayload) error
	PushToTopic(ctx context.Context, p domain.PushPayload) error
	SubscribeToTopic(ctx context.Context, sessionID string) error
	UnsubscribeFromTopic(ctx context.Context, sessionID string) error
}

// Op names a gateway call in outcomes and logs.
type Op string

const (
	OpPushToDevice         Op = "push_to_device"
	OpPushToTopic          Op = "push_to_topic"
	OpSubscribeToTopic     Op = "subscribe_to_topic"
	OpUnsubscribeFromTopic Op = "unsubscribe_from_topic"
)

// Outcome is the result of one gateway call. Target is the session id, empty for topic pushes.
type Outcome struct {
	Op     Op
	Target string
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Dispatcher turns delivery requests into gateway calls. It holds no state and
// never returns gateway failures as errors: each call reports an Outcome.
type Dispatcher struct {
	gateway Gateway
	timeout time.Duration
}

// New returns a dispatcher bounding every gateway call by timeout (no bound when <= 0).
func New(gateway Gateway, timeout time.Duration) *Dispatcher {
	return &Dispatcher{gateway: gateway, timeout: timeout}
}

func (d *Dispatcher) PushToDevice(ctx context.Context, sessionID string, m *domain.Message) Outcome {
	p := domain.NewPushPayload(m)
	return d.call(ctx, OpPushToDevice, sessionID, func(ctx context.Context) error {
		return d.gateway.PushToDevice(ctx, sessionID, p)
	})
}

func (d *Dispatcher) PushToTopic(ctx context.Context, m *domain.Message) Outcome {
	p := domain.NewPushPayload(m)
	return d.call(ctx, OpPushToTopic, "", func(ctx context.Context) error {
		return d.gateway.PushToTopic(ctx, p)
	})
}

func (d *Dispatcher) SubscribeToTopic(ctx context.Context, sessionID string) Outcome {
	return d.call(ctx, OpSubscribeToTopic, sessionID, func(ctx context.Context) error {
		return d.gateway.SubscribeToTopic(ctx, sessionID)
	})
}

func (d *Dispatcher) UnsubscribeFromTopic(ctx context.Context, sessionID string) Outcome {
	return d.call(ctx, OpUnsubscribeFromTopic, sessionID, func(ctx context.Context) error {
		return d.gateway.UnsubscribeFromTopic(ctx, sessionID)
	})
}

// call runs fn under the timeout. A panic inside the gateway is reported like any other failure.
func (d *Dispatcher) call(ctx context.Context, op Op, target string, fn func(context.Context) error) (out Outcome) {
	out = Outcome{Op: op, Target: target}
	if d.gateway == nil {
		out.Err = fmt.Errorf("%s: no push gateway configured", op)
		return out
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("%s: gateway panic: %v", op, r)
		}
	}()
	if err := fn(ctx); err != nil {
		out.Err = fmt.Errorf("%s: %w", op, err)
	}
	return out
}
