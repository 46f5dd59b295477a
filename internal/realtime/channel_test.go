package realtime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/pharmalink-go/internal/session"
	"github.com/angelmondragon/pharmalink-go/pkg/config"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/gorilla/websocket"
)

type wsRecorder struct {
	mu     sync.Mutex
	tokens []string
	conns  []*websocket.Conn
}

func (r *wsRecorder) record(token string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	r.conns = append(r.conns, conn)
}

func (r *wsRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

func (r *wsRecorder) last() *websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) == 0 {
		return nil
	}
	return r.conns[len(r.conns)-1]
}

func newWSServer(t *testing.T, rec *wsRecorder) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		rec.record(r.URL.Query().Get("token"), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func testSetup(t *testing.T) (*Channel, *session.Manager, *wsRecorder) {
	t.Helper()
	rec := &wsRecorder{}
	srv := newWSServer(t, rec)

	sess, err := session.NewManager(context.Background(), session.NewMemoryStore(), testLogger())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	ch, err := New(config.RealtimeConfig{HandshakeTimeout: 2 * time.Second, HeartbeatInterval: time.Minute}, srv.URL, sess, testLogger())
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	t.Cleanup(func() { _ = ch.Disconnect() })
	return ch, sess, rec
}

func TestConnectRequiresAuthentication(t *testing.T) {
	t.Parallel()

	ch, _, _ := testSetup(t)
	if err := ch.Connect(context.Background()); err == nil {
		t.Fatal("expected error when no token is held")
	}
}

func TestLoginArmsChannelWithNewToken(t *testing.T) {
	t.Parallel()

	ch, sess, rec := testSetup(t)
	if err := sess.Set(context.Background(), session.Session{AccessToken: "tok-login", RefreshToken: "ref"}); err != nil {
		t.Fatalf("set session: %v", err)
	}

	if !ch.Connected() {
		t.Fatal("expected channel connected after login")
	}
	if ch.AuthToken() != "tok-login" {
		t.Fatalf("handshake credential mismatch: %q", ch.AuthToken())
	}
	if seen := rec.seen(); len(seen) != 1 || seen[0] != "tok-login" {
		t.Fatalf("server saw tokens %v", seen)
	}
}

func TestTokenRotationReArmsChannel(t *testing.T) {
	t.Parallel()

	ch, sess, rec := testSetup(t)
	ctx := context.Background()
	if err := sess.Set(ctx, session.Session{AccessToken: "tok-1", RefreshToken: "ref-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := sess.SetTokens(ctx, "tok-2", "ref-2"); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if ch.AuthToken() != "tok-2" {
		t.Fatalf("expected re-armed credential tok-2, got %q", ch.AuthToken())
	}
	if seen := rec.seen(); len(seen) != 2 || seen[1] != "tok-2" {
		t.Fatalf("server saw tokens %v", seen)
	}
}

func TestLogoutDisconnectsImmediately(t *testing.T) {
	t.Parallel()

	ch, sess, _ := testSetup(t)
	ctx := context.Background()
	if err := sess.Set(ctx, session.Session{AccessToken: "tok-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := sess.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ch.Connected() || ch.AuthToken() != "" {
		t.Fatal("expected disconnected channel after logout")
	}
}

func TestEventsDispatchToHandlers(t *testing.T) {
	t.Parallel()

	ch, sess, rec := testSetup(t)
	received := make(chan Event, 1)
	ch.On("order_status", func(e Event) { received <- e })

	if err := sess.Set(context.Background(), session.Session{AccessToken: "tok"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	server := rec.last()
	if server == nil {
		t.Fatal("no server-side connection")
	}
	if err := server.WriteJSON(Event{Event: "order_status", Payload: []byte(`{"orderId":"o1"}`)}); err != nil {
		t.Fatalf("server write: %v", err)
	}

	select {
	case event := <-received:
		if event.Event != "order_status" {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestDisconnectDoesNotRaceHeartbeat(t *testing.T) {
	t.Parallel()

	rec := &wsRecorder{}
	srv := newWSServer(t, rec)

	sess, err := session.NewManager(context.Background(), session.NewMemoryStore(), testLogger())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	cfg := config.RealtimeConfig{HandshakeTimeout: 2 * time.Second, HeartbeatInterval: time.Millisecond}
	ch, err := New(cfg, srv.URL, sess, testLogger())
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	t.Cleanup(func() { _ = ch.Disconnect() })

	for i := 0; i < 20; i++ {
		if err := sess.SetTokens(context.Background(), "tok-hb", "ref"); err != nil {
			t.Fatalf("set tokens: %v", err)
		}
		if !ch.Connected() {
			t.Fatal("expected channel connected")
		}
		time.Sleep(3 * time.Millisecond)
		if err := ch.Disconnect(); err != nil {
			t.Fatalf("disconnect: %v", err)
		}
	}
}
