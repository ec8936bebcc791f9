package event

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultMinPrice    = 0
	DefaultMaxPrice    = 1500
	DefaultRadiusMiles = 100
	MaxRadiusMiles     = 1000
	DefaultSort        = "title"
)

var (
	ErrInvalidRequest = errors.New("invalid search request")
	ErrInvalidSort    = errors.New("unrecognized sort specifier")
)

// SearchRequest is bound from the query string of GET /events/all.
type SearchRequest struct {
	Place       string  `form:"city" json:"city" binding:"required,min=1,max=200"`
	Interest    string  `form:"interest" json:"interest" binding:"omitempty,max=200"`
	MinPrice    float64 `form:"min_price,default=0" json:"min_price" binding:"gte=0"`
	MaxPrice    float64 `form:"max_price,default=1500" json:"max_price" binding:"gte=0,gtefield=MinPrice"`
	RadiusMiles float64 `form:"radius,default=100" json:"radius" binding:"gt=0,lte=1000"`
	SortBy      string  `form:"sort_by,default=title" json:"sort_by" binding:"omitempty,max=40"`
	Date        string  `form:"date" json:"date" binding:"omitempty,datetime=2006-01-02"`
}

func NewSearchRequest(place string) SearchRequest {
	return SearchRequest{
		Place:       place,
		MinPrice:    DefaultMinPrice,
		MaxPrice:    DefaultMaxPrice,
		RadiusMiles: DefaultRadiusMiles,
		SortBy:      DefaultSort,
	}
}

// Validate repeats the binding rules for callers that do not come through gin, and checks the
// sort specifier, which binding tags cannot express.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Place) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidRequest)
	}
	if bad(r.MinPrice) || bad(r.MaxPrice) || r.MinPrice < 0 || r.MaxPrice < 0 {
		return fmt.Errorf("%w: prices must be non-negative numbers", ErrInvalidRequest)
	}
	if r.MaxPrice < r.MinPrice {
		return fmt.Errorf("%w: max_price must be at least min_price", ErrInvalidRequest)
	}
	if bad(r.RadiusMiles) || r.RadiusMiles <= 0 || r.RadiusMiles > MaxRadiusMiles {
		return fmt.Errorf("%w: radius must be in (0, %d] miles", ErrInvalidRequest, MaxRadiusMiles)
	}
	if r.Date != "" {
		if _, err := time.Parse(DateLayout, r.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}
	if _, err := ParseSort(r.SortBy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func bad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

type SortField string

const (
	SortByTitle SortField = "title"
	SortByPrice SortField = "price"
	SortByDate  SortField = "date"
)

type SortSpec struct {
	Field SortField
	Desc  bool
}

// ParseSort recognizes a field by case-insensitive substring ("price", "date", "title") and a
// "desc" modifier. Empty means title ascending. Title order ignores the modifier.
func ParseSort(spec string) (SortSpec, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	desc := strings.Contains(s, "desc")

	switch {
	case strings.Contains(s, "price"):
		return SortSpec{Field: SortByPrice, Desc: desc}, nil
	case strings.Contains(s, "date"):
		return SortSpec{Field: SortByDate, Desc: desc}, nil
	case s == "" || strings.Contains(s, "title"):
		return SortSpec{Field: SortByTitle}, nil
	default:
		return SortSpec{}, fmt.Errorf("%w: %q", ErrInvalidSort, spec)
	}
}
