package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/pharmalink-go/pkg/enums"
	"github.com/angelmondragon/pharmalink-go/pkg/types"
)

// Vendor is a catalog entity. The client fetches vendors and never mutates
// them locally.
type Vendor struct {
	ID                 string         `json:"_id"`
	Email              string         `json:"email,omitempty"`
	Name               string         `json:"name,omitempty"`
	BusinessName       string         `json:"businessName"`
	DeliveryCapability bool           `json:"deliveryCapability"`
	Rating             float64        `json:"rating"`
	Phone              string         `json:"phone,omitempty"`
	Address            types.Address  `json:"address"`
	BusinessLicense    string         `json:"businessLicense,omitempty"`
	Role               enums.UserRole `json:"role,omitempty"`
}

// VendorRef is the tagged union the backend uses for vendor fields: either a
// bare id string or the expanded vendor document. The variant is resolved
// once at the decode boundary.
type VendorRef struct {
	ID     string
	Vendor *Vendor
}

// Expanded reports whether the full vendor document is present.
func (v VendorRef) Expanded() bool {
	return v.Vendor != nil
}

// VendorID returns the id regardless of which variant was decoded.
func (v VendorRef) VendorID() string {
	if v.Vendor != nil {
		return v.Vendor.ID
	}
	return v.ID
}

// UnmarshalJSON resolves the reference-vs-document variant.
func (v *VendorRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = VendorRef{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("vendor ref id: %w", err)
		}
		*v = VendorRef{ID: id}
		return nil
	}
	if trimmed[0] == '{' {
		var vendor Vendor
		if err := json.Unmarshal(trimmed, &vendor); err != nil {
			return fmt.Errorf("vendor ref document: %w", err)
		}
		*v = VendorRef{ID: vendor.ID, Vendor: &vendor}
		return nil
	}
	return fmt.Errorf("vendor ref: unexpected JSON %s", string(trimmed))
}

// MarshalJSON writes the id form; the client never submits expanded vendors.
func (v VendorRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.VendorID())
}
