package session

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), NewMemoryStore(), testLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestSetPersistsAllThreeKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	m, err := NewManager(ctx, store, testLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sess := Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         &models.User{ID: "u1", Email: "rx@pharm.test", Name: "Main St Pharmacy"},
	}
	if err := m.Set(ctx, sess); err != nil {
		t.Fatalf("set: %v", err)
	}

	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if _, err := store.Get(ctx, key); err != nil {
			t.Fatalf("expected %s persisted: %v", key, err)
		}
	}
	if !m.Authenticated() || m.AccessToken() != "access-1" {
		t.Fatalf("unexpected state %+v", m.Current())
	}
}

func TestClearLeavesLoggedOutState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := testManager(t)
	if err := m.Set(ctx, Session{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if m.Authenticated() || m.RefreshToken() != "" || m.User() != nil {
		t.Fatalf("expected zero session, got %+v", m.Current())
	}
}

func TestListenersObserveSetAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := testManager(t)

	var seen []string
	m.Subscribe(func(s Session) {
		seen = append(seen, s.AccessToken)
	})

	if err := m.Set(ctx, Session{AccessToken: "tok-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if len(seen) != 2 || seen[0] != "tok-1" || seen[1] != "" {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestSetTokensKeepsUserSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := testManager(t)
	user := &models.User{ID: "u1"}
	if err := m.Set(ctx, Session{AccessToken: "a1", RefreshToken: "r1", User: user}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.SetTokens(ctx, "a2", "r2"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	cur := m.Current()
	if cur.AccessToken != "a2" || cur.RefreshToken != "r2" {
		t.Fatalf("tokens not rotated: %+v", cur)
	}
	if cur.User == nil || cur.User.ID != "u1" {
		t.Fatalf("user snapshot lost: %+v", cur.User)
	}
}

func TestSetRejectsEmptyAccessToken(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	if err := m.Set(context.Background(), Session{RefreshToken: "r"}); err == nil {
		t.Fatal("expected error for session without access token")
	}
}

func TestManagerRestoresPersistedSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	first, err := NewManager(ctx, store, testLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := first.Set(ctx, Session{AccessToken: "a", RefreshToken: "r", User: &models.User{ID: "u9"}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	second, err := NewManager(ctx, store, testLogger())
	if err != nil {
		t.Fatalf("reload manager: %v", err)
	}
	cur := second.Current()
	if cur.AccessToken != "a" || cur.User == nil || cur.User.ID != "u9" {
		t.Fatalf("session not restored: %+v", cur)
	}
}

func TestLeftoverKeysWithoutAccessTokenReadAsLoggedOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, KeyRefreshToken, "stale"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Set(ctx, KeyUser, `{"_id":"u1"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := NewManager(ctx, store, testLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.Authenticated() || m.User() != nil {
		t.Fatalf("leftover keys must not authenticate: %+v", m.Current())
	}
}

func TestFileStoreSurvivesReload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Set(ctx, KeyAccessToken, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	val, err := reloaded.Get(ctx, KeyAccessToken)
	if err != nil || val != "tok" {
		t.Fatalf("get after reload: %v %q", err, val)
	}

	if err := reloaded.Delete(ctx, KeyAccessToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := reloaded.Get(ctx, KeyAccessToken); err != ErrKeyMissing {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}
