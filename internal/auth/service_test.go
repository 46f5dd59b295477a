package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/angelmondragon/pharmalink-go/internal/session"
	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
	"github.com/angelmondragon/pharmalink-go/pkg/types"
)

type stubBackend struct {
	posts       []string
	postBody    any
	response    any
	postErr     error
	refreshErr  error
	refreshHits int
}

func (s *stubBackend) Post(_ context.Context, path string, body, out any) error {
	s.posts = append(s.posts, path)
	s.postBody = body
	if s.postErr != nil {
		return s.postErr
	}
	if fn, ok := s.response.(func(out any)); ok && out != nil {
		fn(out)
	}
	return nil
}

func (s *stubBackend) RefreshSession(_ context.Context) error {
	s.refreshHits++
	return s.refreshErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func testService(t *testing.T, api *stubBackend) (*Service, *session.Manager) {
	t.Helper()
	sess, err := session.NewManager(context.Background(), session.NewMemoryStore(), testLogger())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	svc, err := NewService(api, sess, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, sess
}

func TestLoginPersistsSessionAndNotifies(t *testing.T) {
	t.Parallel()

	api := &stubBackend{response: func(out any) {
		resp := out.(*loginResponse)
		resp.AccessToken = "access-1"
		resp.RefreshToken = "refresh-1"
		resp.User = &models.User{ID: "u1", Email: "rx@pharm.test"}
	}}
	svc, sess := testService(t, api)

	var armedWith string
	sess.Subscribe(func(s session.Session) { armedWith = s.AccessToken })

	user, err := svc.Login(context.Background(), LoginInput{Email: "rx@pharm.test", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("unexpected user %+v", user)
	}
	cur := sess.Current()
	if cur.AccessToken != "access-1" || cur.RefreshToken != "refresh-1" || cur.User == nil {
		t.Fatalf("session not fully persisted: %+v", cur)
	}
	if armedWith != "access-1" {
		t.Fatalf("listeners saw %q, want new access token", armedWith)
	}
}

func TestLoginValidatesBeforeNetwork(t *testing.T) {
	t.Parallel()

	api := &stubBackend{}
	svc, _ := testService(t, api)

	_, err := svc.Login(context.Background(), LoginInput{Email: "nope", Password: ""})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(api.posts) != 0 {
		t.Fatal("validation failures must not reach the backend")
	}
}

func TestRegisterRejectsPasswordMismatch(t *testing.T) {
	t.Parallel()

	api := &stubBackend{}
	svc, _ := testService(t, api)

	input := RegisterPharmacyInput{
		Email:           "rx@pharm.test",
		Password:        "supersecret",
		ConfirmPassword: "different",
		Name:            "Jo",
		Phone:           "555",
		BusinessName:    "Main St Pharmacy",
		PharmacyLicense: "PH-1",
		Address:         types.Address{Street: "1 Main", City: "Town", State: "OK", Zip: "00000"},
	}
	_, err := svc.RegisterPharmacy(context.Background(), input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(api.posts) != 0 {
		t.Fatal("mismatch must be caught before any network call")
	}
}

func TestRegisterZeroFillsCoordinates(t *testing.T) {
	t.Parallel()

	api := &stubBackend{}
	svc, _ := testService(t, api)

	input := RegisterPharmacyInput{
		Email:           "rx@pharm.test",
		Password:        "supersecret",
		ConfirmPassword: "supersecret",
		Name:            "Jo",
		Phone:           "555",
		BusinessName:    "Main St Pharmacy",
		PharmacyLicense: "PH-1",
		Address:         types.Address{Street: "1 Main", City: "Town", State: "OK", Zip: "00000"},
	}
	if _, err := svc.RegisterPharmacy(context.Background(), input); err != nil {
		t.Fatalf("register: %v", err)
	}
	sent, ok := api.postBody.(RegisterPharmacyInput)
	if !ok {
		t.Fatalf("unexpected body type %T", api.postBody)
	}
	if sent.Address.Coordinates == nil {
		t.Fatal("expected zero-filled coordinates")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	svc, sess := testService(t, &stubBackend{})
	ctx := context.Background()
	if err := sess.Set(ctx, session.Session{AccessToken: "a", User: &models.User{ID: "u"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.Authenticated() || svc.CurrentUser() != nil {
		t.Fatal("expected logged-out state")
	}
}

func TestRefreshDelegatesToGateway(t *testing.T) {
	t.Parallel()

	api := &stubBackend{}
	svc, _ := testService(t, api)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if api.refreshHits != 1 {
		t.Fatalf("expected one refresh delegation, got %d", api.refreshHits)
	}
}

func TestRegisterAcceptsBothResponseShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"wrapped", `{"user":{"_id":"u1","email":"rx@pharm.test","name":"Jo"}}`},
		{"bare document", `{"_id":"u1","email":"rx@pharm.test","name":"Jo"}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			api := &stubBackend{response: func(out any) {
				if err := json.Unmarshal([]byte(tc.raw), out); err != nil {
					t.Fatalf("decode response: %v", err)
				}
			}}
			svc, _ := testService(t, api)

			input := RegisterPharmacyInput{
				Email:           "rx@pharm.test",
				Password:        "supersecret",
				ConfirmPassword: "supersecret",
				Name:            "Jo",
				Phone:           "555",
				BusinessName:    "Main St Pharmacy",
				PharmacyLicense: "PH-1",
				Address:         types.Address{Street: "1 Main", City: "Town", State: "OK", Zip: "00000"},
			}
			user, err := svc.RegisterPharmacy(context.Background(), input)
			if err != nil {
				t.Fatalf("register: %v", err)
			}
			if user == nil || user.ID != "u1" || user.Email != "rx@pharm.test" {
				t.Fatalf("unexpected user %+v", user)
			}
		})
	}
}

func TestRegisterToleratesEmptyResponse(t *testing.T) {
	t.Parallel()

	api := &stubBackend{response: func(out any) {
		if err := json.Unmarshal([]byte(`{}`), out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}}
	svc, _ := testService(t, api)

	input := RegisterPharmacyInput{
		Email:           "rx@pharm.test",
		Password:        "supersecret",
		ConfirmPassword: "supersecret",
		Name:            "Jo",
		Phone:           "555",
		BusinessName:    "Main St Pharmacy",
		PharmacyLicense: "PH-1",
		Address:         types.Address{Street: "1 Main", City: "Town", State: "OK", Zip: "00000"},
	}
	user, err := svc.RegisterPharmacy(context.Background(), input)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user != nil {
		t.Fatalf("empty body should yield no user, got %+v", user)
	}
}
