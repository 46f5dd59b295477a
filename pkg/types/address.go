package types

import "strings"

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address mirrors the backend's address document.
type Address struct {
	Street      string       `json:"street"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Zip         string       `json:"zip"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// IsZero reports whether no address component is set.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.Zip) == ""
}

// Validate checks the fields the backend requires on registration and
// delivery destinations.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Street) == "":
		return missingField("street")
	case strings.TrimSpace(a.City) == "":
		return missingField("city")
	case strings.TrimSpace(a.State) == "":
		return missingField("state")
	case strings.TrimSpace(a.Zip) == "":
		return missingField("zip")
	}
	return nil
}
