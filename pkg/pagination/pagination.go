package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any list call can request.
	MaxLimit = 100
)

// Params holds the page-based inputs accepted by every list endpoint.
type Params struct {
	Page  int
	Limit int
}

// Meta is the pagination envelope the backend returns alongside list data.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// HasNext reports whether another page follows.
func (m Meta) HasNext() bool {
	return m.Page < m.Pages
}

// NormalizeLimit enforces the provided default and the global maximum.
func NormalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Values encodes the params as a query string, applying the fallback limit.
func (p Params) Values(fallbackLimit int) url.Values {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(NormalizeLimit(p.Limit, fallbackLimit)))
	if p.Page > 1 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	return values
}
