// Package medications wraps the medication catalog endpoints.
package medications

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
	"github.com/angelmondragon/pharmalink-go/pkg/pagination"
)

// DefaultLimit matches the page size the portal requests for catalogs.
const DefaultLimit = 50

type backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Service exposes the medication resource family.
type Service struct {
	api backend
	log *logger.Logger
}

// NewService builds a medication service over the gateway.
func NewService(api backend, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{api: api, log: logg}, nil
}

// ListResult is the paged medication envelope.
type ListResult struct {
	Medications []models.Medication `json:"medications"`
	Pagination  pagination.Meta     `json:"pagination"`
}

// List fetches a page of the full catalog.
func (s *Service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	var out ListResult
	if err := s.api.Get(ctx, "/medications", params.Values(DefaultLimit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByVendor fetches a page of one vendor's catalog. The ordering flow
// re-runs this after a stock conflict to refresh displayed quantities.
func (s *Service) ListByVendor(ctx context.Context, vendorID string, params pagination.Params) (*ListResult, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	var out ListResult
	path := "/medications/vendor/" + url.PathEscape(vendorID)
	if err := s.api.Get(ctx, path, params.Values(DefaultLimit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one medication by id.
func (s *Service) Get(ctx context.Context, medicationID string) (*models.Medication, error) {
	if strings.TrimSpace(medicationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medication id is required")
	}
	var out models.Medication
	if err := s.api.Get(ctx, "/medications/"+url.PathEscape(medicationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
