// Package orders wraps the order and delivery-tracking endpoints. Orders are
// created server-side from a cart snapshot; the client only ever holds a
// view projection and never recomputes authoritative totals.
package orders

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/pharmalink-go/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/angelmondragon/pharmalink-go/pkg/models"
	"github.com/angelmondragon/pharmalink-go/pkg/pagination"
	"github.com/angelmondragon/pharmalink-go/pkg/validate"
)

// DefaultLimit matches the page size the portal requests for order history.
const DefaultLimit = 10

type backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
}

// Service exposes the order resource family.
type Service struct {
	api backend
	log *logger.Logger
}

// NewService builds an order service over the gateway.
func NewService(api backend, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{api: api, log: logg}, nil
}

// CreateItem is one cart line submitted with an order.
type CreateItem struct {
	MedicationID string `json:"medicationId" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// CreateInput is the order submission payload.
type CreateInput struct {
	VendorID      string              `json:"vendorId" validate:"required"`
	Items         []CreateItem        `json:"items" validate:"required,min=1,dive"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod" validate:"required"`
	DeliveryInfo  models.DeliveryInfo `json:"deliveryInfo"`
}

// Create submits an order.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}

	var out models.Order
	if err := s.api.Post(ctx, "/orders", input, &out); err != nil {
		return nil, err
	}
	s.log.Info(s.log.WithOrderID(ctx, out.ID), "order created")
	return &out, nil
}

// ListResult is the paged order envelope.
type ListResult struct {
	Orders     []models.Order  `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// List fetches a page of the pharmacy's order history.
func (s *Service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	var out ListResult
	if err := s.api.Get(ctx, "/orders", params.Values(DefaultLimit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	if err := requireOrderID(orderID); err != nil {
		return nil, err
	}
	var out models.Order
	if err := s.api.Get(ctx, "/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*models.Order, error) {
	if err := requireOrderID(orderID); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", status))
	}
	var out models.Order
	body := map[string]string{"status": status.String()}
	if err := s.api.Put(ctx, "/orders/"+url.PathEscape(orderID)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDeliveryStatus updates the delivery sub-state.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*models.Order, error) {
	if err := requireOrderID(orderID); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown delivery status %q", status))
	}
	var out models.Order
	body := map[string]string{"status": status.String()}
	if err := s.api.Put(ctx, "/orders/"+url.PathEscape(orderID)+"/delivery/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDeliveryLocation reports a courier position.
func (s *Service) UpdateDeliveryLocation(ctx context.Context, orderID string, latitude, longitude float64) (*models.Order, error) {
	if err := requireOrderID(orderID); err != nil {
		return nil, err
	}
	var out models.Order
	body := map[string]float64{"latitude": latitude, "longitude": longitude}
	if err := s.api.Put(ctx, "/orders/"+url.PathEscape(orderID)+"/delivery/location", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeliveryTracking fetches the live delivery projection for an order.
func (s *Service) DeliveryTracking(ctx context.Context, orderID string) (*models.DeliveryTracking, error) {
	if err := requireOrderID(orderID); err != nil {
		return nil, err
	}
	var out models.DeliveryTracking
	if err := s.api.Get(ctx, "/orders/"+url.PathEscape(orderID)+"/delivery/tracking", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyticsReport is the aggregate spend/volume projection.
type AnalyticsReport struct {
	TotalOrders    int            `json:"totalOrders"`
	TotalSpent     float64        `json:"totalSpent"`
	OrdersByStatus map[string]int `json:"ordersByStatus,omitempty"`
}

// Analytics fetches the pharmacy's aggregate order report.
func (s *Service) Analytics(ctx context.Context) (*AnalyticsReport, error) {
	var out AnalyticsReport
	if err := s.api.Get(ctx, "/orders/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TopSellingMedication is one row of a vendor's best-seller report.
type TopSellingMedication struct {
	MedicationID string  `json:"medicationId"`
	Name         string  `json:"name"`
	TotalSold    int     `json:"totalSold"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// TopSelling fetches a vendor's best-selling medications.
func (s *Service) TopSelling(ctx context.Context, vendorID string) ([]TopSellingMedication, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	var out []TopSellingMedication
	if err := s.api.Get(ctx, "/orders/vendor/"+url.PathEscape(vendorID)+"/top-selling", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func requireOrderID(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return nil
}
