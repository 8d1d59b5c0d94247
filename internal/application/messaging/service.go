package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-delivery-messaging/internal/application/dispatch"
	"github.com/go-delivery-messaging/internal/domain"
	"github.com/go-delivery-messaging/internal/pkg/validate"
	"golang.org/x/sync/errgroup"
)

const defaultFanOutLimit = 8

// Producer is the API business services (orders, payments, settings) call after
// a state change. Once the message is stored the call succeeds; delivery problems
// are logged and never returned.
type Producer interface {
	SendToStaff(ctx context.Context, text string) error
	SendToUser(ctx context.Context, userID, text string) error
	Send(ctx context.Context, req domain.NotificationRequest) (*domain.Message, error)
}

// Consumer is the API behind the HTTP and websocket transports.
type Consumer interface {
	Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error
	Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error
	MarkAsRead(ctx context.Context, caller domain.Caller, messageID string) (*domain.Message, error)
	List(ctx context.Context, caller domain.Caller, q ListQuery) (*domain.MessagePage, error)
}

type Service interface {
	Producer
	Consumer
}

// ListQuery is the caller-controlled part of a mailbox query; the filter comes from the caller's role.
type ListQuery struct {
	Offset     int
	Limit      int
	Sort       domain.SortOrder
	UnreadOnly bool
}

type messageStore interface {
	Append(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, f domain.MessageFilter, messageID string) (*domain.Message, error)
	SetRead(ctx context.Context, f domain.MessageFilter, messageID string) (*domain.Message, error)
	Query(ctx context.Context, q domain.MessageQuery) (*domain.MessagePage, error)
}

type sessionStore interface {
	Add(ctx context.Context, s *domain.PushSession) error
	Remove(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (*domain.PushSession, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PushSession, error)
}

type dispatcher interface {
	PushToDevice(ctx context.Context, sessionID string, m *domain.Message) dispatch.Outcome
	PushToTopic(ctx context.Context, m *domain.Message) dispatch.Outcome
	SubscribeToTopic(ctx context.Context, sessionID string) dispatch.Outcome
	UnsubscribeFromTopic(ctx context.Context, sessionID string) dispatch.Outcome
}

// ServiceDeps groups the collaborators of the messaging service.
type ServiceDeps struct {
	Messages    messageStore
	Sessions    sessionStore
	Dispatcher  dispatcher
	Logger      *slog.Logger
	FanOutLimit int // concurrent device pushes per message
}

type service struct {
	messages    messageStore
	sessions    sessionStore
	dispatcher  dispatcher
	log         *slog.Logger
	fanOutLimit int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		messages:    deps.Messages,
		sessions:    deps.Sessions,
		dispatcher:  deps.Dispatcher,
		log:         deps.Logger,
		fanOutLimit: deps.FanOutLimit,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.fanOutLimit <= 0 {
		s.fanOutLimit = defaultFanOutLimit
	}
	return s
}

func (s *service) SendToStaff(ctx context.Context, text string) error {
	_, err := s.Send(ctx, domain.NotificationRequest{Text: text, Audience: domain.StaffAudience()})
	return err
}

func (s *service) SendToUser(ctx context.Context, userID, text string) error {
	_, err := s.Send(ctx, domain.NotificationRequest{Text: text, Audience: domain.UserAudience(userID)})
	return err
}

// Send stores the message, then delivers it. Storage is the contract: only a
// validation or storage error is returned. Delivery runs detached from ctx
// cancellation, so a caller abort after the message is stored does not cut pushes short.
func (s *service) Send(ctx context.Context, req domain.NotificationRequest) (*domain.Message, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	m := req.NewMessage()
	if err := s.messages.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.deliver(context.WithoutCancel(ctx), m)
	return m, nil
}

func (s *service) deliver(ctx context.Context, m *domain.Message) {
	if m.ForEmployee {
		s.logOutcome(m, s.dispatcher.PushToTopic(ctx, m))
		return
	}

	sessions, err := s.sessions.ListByUser(ctx, *m.RecipientID)
	if err != nil {
		s.log.Warn("session lookup failed, message stored without push",
			"message_id", m.MessageID, "user_id", *m.RecipientID, "err", err)
		return
	}
	if len(sessions) == 0 {
		s.log.Debug("recipient has no active sessions", "message_id", m.MessageID, "user_id", *m.RecipientID)
		return
	}

	outcomes := make([]dispatch.Outcome, len(sessions))
	var g errgroup.Group
	g.SetLimit(s.fanOutLimit)
	for i, sess := range sessions {
		g.Go(func() error {
			outcomes[i] = s.dispatcher.PushToDevice(ctx, sess.SessionID, m)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
		s.logOutcome(m, o)
	}
	s.log.Info("message delivered", "message_id", m.MessageID, "sessions", len(outcomes), "failed", failed)
}

func (s *service) logOutcome(m *domain.Message, o dispatch.Outcome) {
	if o.OK() {
		s.log.Debug("push sent", "op", o.Op, "session_id", o.Target, "message_id", m.MessageID)
		return
	}
	s.log.Warn("push failed", "op", o.Op, "session_id", o.Target, "message_id", m.MessageID, "err", o.Err)
}

// Subscribe registers the session for the caller. Staff sessions also join the
// staff topic; that half is best effort and only logged on failure.
func (s *service) Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error {
	if sessionID == "" || caller.UserID == "" {
		return fmt.Errorf("session id and user are required: %w", domain.ErrBadRequest)
	}
	sess := &domain.PushSession{SessionID: sessionID, UserID: caller.UserID, Role: caller.Role}
	if err := s.sessions.Add(ctx, sess); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	if caller.IsStaff() {
		if o := s.dispatcher.SubscribeToTopic(ctx, sessionID); !o.OK() {
			s.log.Warn("staff topic subscribe failed", "session_id", sessionID, "user_id", caller.UserID, "err", o.Err)
		}
	}
	return nil
}

// Unsubscribe mirrors Subscribe. An unknown session is treated as already
// removed; a session owned by someone else is refused.
func (s *service) Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required: %w", domain.ErrBadRequest)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("look up session: %w", err)
	case sess.UserID != caller.UserID:
		return fmt.Errorf("session belongs to another user: %w", domain.ErrForbidden)
	default:
		if err := s.sessions.Remove(ctx, sessionID); err != nil {
			return fmt.Errorf("remove session: %w", err)
		}
	}
	if caller.IsStaff() {
		if o := s.dispatcher.UnsubscribeFromTopic(ctx, sessionID); !o.OK() {
			s.log.Warn("staff topic unsubscribe failed", "session_id", sessionID, "user_id", caller.UserID, "err", o.Err)
		}
	}
	return nil
}

// MarkAsRead flags a message in the caller's mailbox as read. Ids unknown to that
// mailbox, including messages addressed to someone else, are ErrNotFound.
func (s *service) MarkAsRead(ctx context.Context, caller domain.Caller, messageID string) (*domain.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message id is required: %w", domain.ErrBadRequest)
	}
	mailbox := mailboxOf(caller, false)
	m, err := s.messages.Get(ctx, mailbox, messageID)
	if err != nil {
		return nil, err
	}
	if m.Read {
		return m, nil
	}
	return s.messages.SetRead(ctx, mailbox, messageID)
}

// mailboxOf is the mailbox the caller reads: their own messages for clients, the staff mailbox for staff.
func mailboxOf(caller domain.Caller, unreadOnly bool) domain.MessageFilter {
	if caller.IsStaff() {
		return domain.MessageFilter{ForEmployee: true, UnreadOnly: unreadOnly}
	}
	return domain.MessageFilter{RecipientID: caller.UserID, UnreadOnly: unreadOnly}
}

func (s *service) List(ctx context.Context, caller domain.Caller, q ListQuery) (*domain.MessagePage, error) {
	return s.messages.Query(ctx, domain.MessageQuery{
		Filter: mailboxOf(caller, q.UnreadOnly),
		Offset: q.Offset,
		Limit:  q.Limit,
		Sort:   q.Sort,
	})
}
