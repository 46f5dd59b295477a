// Package realtime maintains the client's authenticated websocket connection
// to the backend's root origin. The channel never retries its own auth
// handshake; it is re-armed only as a side effect of login, refresh, or
// logout through the session manager.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/pharmalink-go/internal/session"
	"github.com/angelmondragon/pharmalink-go/pkg/config"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/gorilla/websocket"
)

// Event is a message pushed by the backend.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler consumes realtime events.
type Handler func(Event)

// Channel is the persistent bidirectional connection for one session.
// writeMu serializes all writes on the connection; gorilla/websocket permits
// only one concurrent writer.
type Channel struct {
	mu                sync.RWMutex
	writeMu           sync.Mutex
	origin            string
	handshakeTimeout  time.Duration
	heartbeatInterval time.Duration
	conn              *websocket.Conn
	connToken         string
	handlers          map[string][]Handler
	done              chan struct{}
	sess              *session.Manager
	log               *logger.Logger
}

// New builds a channel bound to the shared session manager. Every session
// change tears the connection down and, while a token is held, redials with
// the new handshake credential.
func New(cfg config.RealtimeConfig, origin string, sess *session.Manager, logg *logger.Logger) (*Channel, error) {
	if sess == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	handshake := cfg.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	ch := &Channel{
		origin:            strings.TrimSuffix(origin, "/"),
		handshakeTimeout:  handshake,
		heartbeatInterval: heartbeat,
		handlers:          map[string][]Handler{},
		sess:              sess,
		log:               logg,
	}
	sess.Subscribe(ch.onSessionChange)
	return ch, nil
}

func (c *Channel) onSessionChange(s session.Session) {
	if err := c.Disconnect(); err != nil {
		c.log.Warn(context.Background(), "realtime teardown failed")
	}
	if !s.Authenticated() {
		return
	}
	if err := c.connect(context.Background(), s.AccessToken); err != nil {
		c.log.Error(context.Background(), "realtime re-arm failed", err)
	}
}

// Connect dials using the currently stored access token.
func (c *Channel) Connect(ctx context.Context) error {
	token := c.sess.AccessToken()
	if token == "" {
		return fmt.Errorf("realtime: not authenticated")
	}
	return c.connect(ctx, token)
}

func (c *Channel) connect(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	wsURL, err := c.socketURL(token)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.connToken = token
	c.done = make(chan struct{})

	go c.readLoop(conn, c.done)
	go c.heartbeat(conn, c.done)

	c.log.Debug(context.Background(), "realtime channel connected")
	return nil
}

func (c *Channel) socketURL(token string) (string, error) {
	parsed, err := url.Parse(c.origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Disconnect closes the connection immediately. Safe to call when already
// disconnected.
func (c *Channel) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	close(c.done)
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.conn = nil
	c.connToken = ""
	return err
}

// Connected reports whether the channel currently holds a live connection.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// AuthToken returns the handshake credential of the live connection, or ""
// when disconnected.
func (c *Channel) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connToken
}

// On registers a handler for the named event.
func (c *Channel) On(event string, handler Handler) {
	if handler == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		c.dispatch(event)
	}
}

func (c *Channel) dispatch(event Event) {
	c.mu.RLock()
	handlers := append([]Handler(nil), c.handlers[event.Event]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

func (c *Channel) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			select {
			case <-done:
				c.writeMu.Unlock()
				return
			default:
			}
			_ = conn.WriteJSON(Event{Event: "ping"})
			c.writeMu.Unlock()
		}
	}
}
