package aggregate

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
)

const earthRadiusMiles = 3958.8

var errInvalidCoordinates = errors.New("invalid coordinates")

var (
	currencyMarker = regexp.MustCompile(`(?i)[$€£¥]|\b(?:usd|eur|gbp|cad|aud)\b`)
	firstNumber    = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?|\.\d+`)
)

// Criteria is the caller-tunable part of a search, resolved to coordinates.
type Criteria struct {
	At          event.Coordinates
	MinPrice    float64
	MaxPrice    float64
	RadiusMiles float64
	Date        string
}

// Matches reports whether the event passes the price, distance and date filters.
// A radius <= 0 disables the distance filter; an empty date disables the date filter.
func Matches(e event.Event, at event.Coordinates, minPrice, maxPrice, radiusMiles float64, date string) bool {
	return matchesPrice(e, minPrice, maxPrice) &&
		matchesDistance(e, at, radiusMiles) &&
		matchesDate(e, date)
}

func Filter(events []event.Event, c Criteria) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if Matches(e, c.At, c.MinPrice, c.MaxPrice, c.RadiusMiles, c.Date) {
			out = append(out, e)
		}
	}
	return out
}

// PriceFloor extracts the lowest price from free text: "$10 - $20" is 10, "Free" is 0.
// Text with a currency marker yields its first number; a bare number is taken as is;
// anything else is 0.
func PriceFloor(price string) float64 {
	s := strings.TrimSpace(price)
	if s == "" {
		return 0
	}

	if currencyMarker.MatchString(s) {
		m := firstNumber.FindString(s)
		if m == "" {
			return 0
		}
		return sane(strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64))
	}

	return sane(strconv.ParseFloat(s, 64))
}

func sane(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func matchesPrice(e event.Event, minPrice, maxPrice float64) bool {
	v := PriceFloor(e.Price)
	return v >= minPrice && v <= maxPrice
}

func matchesDistance(e event.Event, at event.Coordinates, radiusMiles float64) bool {
	if radiusMiles <= 0 {
		return true
	}
	pos, ok := e.Coordinates()
	if !ok {
		return false
	}
	d, err := DistanceMiles(at, pos)
	if err != nil {
		return false
	}
	return d <= radiusMiles
}

func matchesDate(e event.Event, date string) bool {
	if date == "" {
		return true
	}
	want, err := time.Parse(event.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return false
	}
	got, err := time.Parse(event.DateLayout, e.DatePart())
	if err != nil {
		return false
	}
	return want.Equal(got)
}

// DistanceMiles is the haversine great-circle distance.
func DistanceMiles(a, b event.Coordinates) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, errInvalidCoordinates
	}

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(b.Lat - a.Lat)
	dLon := rad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h))), nil
}
