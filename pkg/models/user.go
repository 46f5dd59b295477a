package models

import (
	"github.com/angelmondragon/pharmalink-go/pkg/enums"
	"github.com/angelmondragon/pharmalink-go/pkg/types"
)

// User is the denormalized snapshot of the authenticated account returned by
// the auth endpoints. It may be stale relative to the backend; it is only
// rewritten on login or refresh.
type User struct {
	ID              string         `json:"_id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	Role            enums.UserRole `json:"role"`
	Phone           string         `json:"phone,omitempty"`
	BusinessName    string         `json:"businessName,omitempty"`
	PharmacyLicense string         `json:"pharmacyLicense,omitempty"`
	Address         *types.Address `json:"address,omitempty"`
}
