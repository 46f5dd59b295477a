package models

import (
	"time"

	"github.com/angelmondragon/pharmalink-go/pkg/enums"
	"github.com/angelmondragon/pharmalink-go/pkg/types"
)

// OrderItem is a priced line inside an order projection.
type OrderItem struct {
	MedicationID string  `json:"medicationId"`
	Name         string  `json:"name,omitempty"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	TotalPrice   float64 `json:"totalPrice"`
}

// DeliveryInfo carries the destination and live courier sub-state of an order.
type DeliveryInfo struct {
	Address         types.Address      `json:"address"`
	ContactName     string             `json:"contactName"`
	ContactPhone    string             `json:"contactPhone"`
	DeliveryNotes   string             `json:"deliveryNotes,omitempty"`
	CurrentLocation *types.GeoLocation `json:"currentLocation,omitempty"`
}

// Order is the client's view-only projection of a server-side order. The
// server remains the source of truth for every monetary field.
type Order struct {
	ID            string              `json:"_id"`
	PharmacyID    string              `json:"pharmacyId"`
	Vendor        VendorRef           `json:"vendorId"`
	Items         []OrderItem         `json:"items"`
	Subtotal      float64             `json:"subtotal"`
	Tax           float64             `json:"tax"`
	DeliveryFee   float64             `json:"deliveryFee,omitempty"`
	Total         float64             `json:"total"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	DeliveryInfo  DeliveryInfo        `json:"deliveryInfo"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// DeliveryTracking is the live projection returned by the tracking endpoint.
// CurrentLocation is only meaningful while the order is out for delivery.
type DeliveryTracking struct {
	OrderID               string             `json:"orderId"`
	Status                enums.OrderStatus  `json:"status"`
	EstimatedDeliveryTime *time.Time         `json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time         `json:"actualDeliveryTime,omitempty"`
	CurrentLocation       *types.GeoLocation `json:"currentLocation,omitempty"`
	Destination           types.Address      `json:"destination"`
}

// Location returns the courier position only while it is meaningful.
func (d DeliveryTracking) Location() *types.GeoLocation {
	if d.Status != enums.OrderStatusOutForDelivery {
		return nil
	}
	return d.CurrentLocation
}
