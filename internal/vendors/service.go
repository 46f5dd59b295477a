// Package vendors wraps the vendor catalog endpoints. Vendors are fetched,
// never mutated locally.
package vendors

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

// DefaultLimit matches the page size the portal requests for vendor lists.
const DefaultLimit = 10

type backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Service exposes the vendor resource family.
type Service struct {
	api backend
	log *logger.Logger
}

// NewService builds a vendor service over the gateway.
func NewService(api backend, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{api: api, log: logg}, nil
}

// ListResult is the paged vendor envelope.
type ListResult struct {
	Vendors    []models.Vendor `json:"vendors"`
	Pagination pagination.Meta `json:"pagination"`
}

// List fetches a page of vendors.
func (s *Service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	var out ListResult
	if err := s.api.Get(ctx, "/vendors", params.Values(DefaultLimit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one vendor by id.
func (s *Service) Get(ctx context.Context, vendorID string) (*models.Vendor, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	var out models.Vendor
	if err := s.api.Get(ctx, "/vendors/"+url.PathEscape(vendorID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
