package models

// Medication is a vendor catalog entry.
type Medication struct {
	ID                   string   `json:"_id"`
	VendorID             string   `json:"vendorId"`
	Name                 string   `json:"name"`
	GenericName          string   `json:"genericName,omitempty"`
	Description          string   `json:"description,omitempty"`
	DosageForm           string   `json:"dosageForm,omitempty"`
	Strength             string   `json:"strength,omitempty"`
	PackageSize          int      `json:"packageSize,omitempty"`
	Manufacturer         string   `json:"manufacturer,omitempty"`
	Category             []string `json:"category,omitempty"`
	RequiresPrescription bool     `json:"requiresPrescription"`
	Price                float64  `json:"price"`
	DiscountPrice        *float64 `json:"discountPrice,omitempty"`
	Stock                int      `json:"stock"`
	Images               []string `json:"images,omitempty"`
}

// EffectivePrice is the discounted price when one is set, else the list price.
func (m Medication) EffectivePrice() float64 {
	if m.DiscountPrice != nil {
		return *m.DiscountPrice
	}
	return m.Price
}

// InStock reports whether at least the requested quantity is available.
func (m Medication) InStock(qty int) bool {
	return qty > 0 && m.Stock >= qty
}
