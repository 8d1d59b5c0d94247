package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-delivery-messaging/internal/domain"
	jwtinfra "github.com/go-delivery-messaging/internal/infrastructure/jwt"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendQueueSize  = 64
	opTimeout      = 10 * time.Second
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Subscriber registers and removes push sessions.
type Subscriber interface {
	Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error
	Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error
}

// Client is one websocket connection. Its id doubles as the push session id
// once the user has logged in.
type Client struct {
	id         string
	conn       *websocket.Conn
	hub        *Hub
	verifier   TokenVerifier
	subscriber Subscriber
	log        *slog.Logger

	send      chan Frame
	done      chan struct{}
	closeOnce sync.Once

	caller *domain.Caller // owned by readPump
}

func newClient(id string, conn *websocket.Conn, hub *Hub, v TokenVerifier, s Subscriber) *Client {
	return &Client{
		id:         id,
		conn:       conn,
		hub:        hub,
		verifier:   v,
		subscriber: s,
		log:        hub.log.With("session_id", id),
		send:       make(chan Frame, sendQueueSize),
		done:       make(chan struct{}),
	}
}

// enqueue never blocks: a slow reader loses the frame and the caller sees an error.
func (c *Client) enqueue(f Frame) error {
	select {
	case <-c.done:
		return errClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	default:
		return errQueueFull
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		c.logout()
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", "err", err)
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			_ = c.enqueue(errorFrame("malformed frame"))
			continue
		}
		c.handle(in)
	}
}

func (c *Client) handle(in inbound) {
	switch in.Event {
	case EventLogin:
		c.login(in.Token)
	case EventLogout:
		if c.caller == nil {
			_ = c.enqueue(errorFrame("not logged in"))
			return
		}
		if err := c.logout(); err != nil {
			_ = c.enqueue(errorFrame("logout failed"))
			return
		}
		_ = c.enqueue(Frame{Event: EventLogoutOK})
	default:
		_ = c.enqueue(errorFrame("unknown event"))
	}
}

func (c *Client) login(token string) {
	if c.caller != nil {
		_ = c.enqueue(errorFrame("already logged in"))
		return
	}
	claims, err := c.verifier.Verify(token)
	if err != nil {
		_ = c.enqueue(errorFrame("invalid or expired token"))
		return
	}
	caller := domain.Caller{UserID: claims.UserID, Role: claims.Role}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.subscriber.Subscribe(ctx, caller, c.id); err != nil {
		c.log.Warn("websocket login failed", "user_id", caller.UserID, "err", err)
		_ = c.enqueue(errorFrame("login failed"))
		return
	}
	c.caller = &caller
	c.log.Info("websocket login", "user_id", caller.UserID, "role", caller.Role)
	_ = c.enqueue(Frame{Event: EventLoginOK, SessionID: c.id})
}

// logout removes the session this connection registered, if any.
func (c *Client) logout() error {
	if c.caller == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.subscriber.Unsubscribe(ctx, *c.caller, c.id); err != nil {
		c.log.Warn("websocket logout failed", "user_id", c.caller.UserID, "err", err)
		return err
	}
	c.caller = nil
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.Warn("websocket write failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
