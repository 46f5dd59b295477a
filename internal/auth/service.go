// Package auth wraps the backend's authentication endpoints and owns the
// login/logout lifecycle of the shared session.
package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/pharmalink-go/internal/session"
	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
	"github.com/angelmondragon/pharmalink-go/pkg/types"
	"github.com/angelmondragon/pharmalink-go/pkg/validate"
)

type backend interface {
	Post(ctx context.Context, path string, body, out any) error
	RefreshSession(ctx context.Context) error
}

// Service exposes the auth resource family.
type Service struct {
	api  backend
	sess *session.Manager
	log  *logger.Logger
}

// NewService builds an auth service over the gateway and session manager.
func NewService(api backend, sess *session.Manager, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{api: api, sess: sess, log: logg}, nil
}

// LoginInput carries the credential form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// Login authenticates and persists the full session atomically. Session
// listeners (the realtime channel among them) observe the new credential
// before Login returns.
func (s *Service) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.api.Post(ctx, "/auth/login", input, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "login response missing tokens")
	}

	sess := session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}
	if err := s.sess.Set(ctx, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting session")
	}

	userID := ""
	if resp.User != nil {
		userID = resp.User.ID
	}
	s.log.Info(s.log.WithUserID(ctx, userID), "login succeeded")
	return resp.User, nil
}

// RegisterPharmacyInput carries the pharmacy sign-up form. The confirm
// password check happens client-side, before any network call.
type RegisterPharmacyInput struct {
	Email           string        `json:"email" validate:"required,email"`
	Password        string        `json:"password" validate:"required,min=8"`
	ConfirmPassword string        `json:"-" validate:"required,eqfield=Password"`
	Name            string        `json:"name" validate:"required"`
	Phone           string        `json:"phone" validate:"required"`
	BusinessName    string        `json:"businessName" validate:"required"`
	PharmacyLicense string        `json:"pharmacyLicense" validate:"required"`
	Address         types.Address `json:"address"`
}

// RegisterPharmacy creates a pharmacy account. Missing coordinates are
// zero-filled; the backend geocodes the address itself.
func (s *Service) RegisterPharmacy(ctx context.Context, input RegisterPharmacyInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if err := input.Address.Validate(); err != nil {
		return nil, err
	}
	if input.Address.Coordinates == nil {
		input.Address.Coordinates = &types.Coordinates{}
	}

	var resp registerResponse
	if err := s.api.Post(ctx, "/auth/register/pharmacy", input, &resp); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "pharmacy registration succeeded")
	return resp.User, nil
}

// registerResponse tolerates both envelope shapes the backend has used for
// registration: {"user": {...}} and the bare account document.
type registerResponse struct {
	User *models.User
}

func (r *registerResponse) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.User != nil {
		r.User = wrapped.User
		return nil
	}

	var bare models.User
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	if bare.ID == "" && bare.Email == "" {
		return nil
	}
	r.User = &bare
	return nil
}

// Refresh forces a token rotation. Failure clears the session.
func (s *Service) Refresh(ctx context.Context) error {
	return s.api.RefreshSession(ctx)
}

// Logout clears the persisted session; listeners disconnect the realtime
// channel immediately.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sess.Clear(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing session")
	}
	s.log.Info(ctx, "logged out")
	return nil
}

// CurrentUser returns the last persisted user snapshot or nil.
func (s *Service) CurrentUser() *models.User {
	return s.sess.User()
}

// Authenticated reports whether an access token is held.
func (s *Service) Authenticated() bool {
	return s.sess.Authenticated()
}
