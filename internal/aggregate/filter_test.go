package aggregate_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/domain/event"
)

var (
	austin = event.Coordinates{Lat: 30.2672, Lon: -97.7431}
	dallas = event.Coordinates{Lat: 32.7767, Lon: -96.7970}
)

func at(c event.Coordinates) (*float64, *float64) {
	return event.Float(c.Lat), event.Float(c.Lon)
}

func mkEvent(title, price string, pos *event.Coordinates) event.Event {
	e := event.Event{
		Title:     title,
		Price:     price,
		Date:      "2025-06-01",
		TicketURL: "https://example.com/" + title,
		Source:    "test",
	}
	if pos != nil {
		e.Latitude, e.Longitude = at(*pos)
	}
	return e
}

// withStart drops Date so the filter has to read the timestamp.
func withStart(e event.Event, start string) event.Event {
	e.Date = ""
	e.StartDateTime = start
	return e
}

func TestPriceFloor(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{in: "$10 - $20", want: 10},
		{in: "Starting at $25.50", want: 25.5},
		{in: "$1,250", want: 1250},
		{in: "USD 40", want: 40},
		{in: "€15", want: 15},
		{in: "Free", want: 0},
		{in: "Varies by ticket package", want: 0},
		{in: "", want: 0},
		{in: "35", want: 35},
		{in: "-5", want: 0},
		{in: "NaN", want: 0},
		{in: "Inf", want: 0},
		{in: "call 555-1234", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := aggregate.PriceFloor(tt.in)
			if got != tt.want {
				t.Fatalf("PriceFloor(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if math.IsNaN(got) || got < 0 {
				t.Fatalf("PriceFloor(%q) must be a non-negative number, got %v", tt.in, got)
			}
		})
	}
}

func TestDistanceMiles(t *testing.T) {
	d, err := aggregate.DistanceMiles(austin, dallas)
	if err != nil {
		t.Fatalf("DistanceMiles: %v", err)
	}
	if d < 175 || d > 190 {
		t.Fatalf("expected roughly 182 miles, got %v", d)
	}

	zero, err := aggregate.DistanceMiles(austin, austin)
	if err != nil || zero != 0 {
		t.Fatalf("expected 0 for identical points, got %v (%v)", zero, err)
	}

	if _, err := aggregate.DistanceMiles(austin, event.Coordinates{Lat: 91}); err == nil {
		t.Fatalf("expected error for out-of-range latitude")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		e      event.Event
		min    float64
		max    float64
		radius float64
		date   string
		want   bool
	}{
		{name: "in range and nearby", e: mkEvent("a", "$20", &austin), min: 0, max: 50, radius: 100, want: true},
		{name: "too expensive", e: mkEvent("a", "$80", &austin), min: 0, max: 50, radius: 100, want: false},
		{name: "below minimum", e: mkEvent("a", "$5", &austin), min: 10, max: 50, radius: 100, want: false},
		{name: "too far", e: mkEvent("a", "$20", &dallas), min: 0, max: 50, radius: 100, want: false},
		{name: "no coordinates", e: mkEvent("a", "$20", nil), min: 0, max: 50, radius: 100, want: false},
		{name: "radius disabled", e: mkEvent("a", "$20", nil), min: 0, max: 50, radius: 0, want: true},
		{name: "date matches", e: mkEvent("a", "$20", &austin), max: 50, radius: 100, date: "2025-06-01", want: true},
		{name: "date differs", e: mkEvent("a", "$20", &austin), max: 50, radius: 100, date: "2025-06-02", want: false},
		{name: "space separated timestamp", e: withStart(mkEvent("a", "$20", &austin), "2025-06-01 20:00:00"), max: 50, radius: 100, date: "2025-06-01", want: true},
		{name: "space separated timestamp other day", e: withStart(mkEvent("a", "$20", &austin), "2025-06-01 20:00:00"), max: 50, radius: 100, date: "2025-06-02", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aggregate.Matches(tt.e, austin, tt.min, tt.max, tt.radius, tt.date)
			if got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_ZeroPriceWindowKeepsOnlyFree(t *testing.T) {
	events := []event.Event{
		mkEvent("free", "Free", &austin),
		mkEvent("unknown", event.PlaceholderPrice, &austin),
		mkEvent("paid", "$1", &austin),
	}

	got := aggregate.Filter(events, aggregate.Criteria{At: austin, MinPrice: 0, MaxPrice: 0, RadiusMiles: 50})
	if len(got) != 2 {
		t.Fatalf("expected 2 zero-priced events, got %d", len(got))
	}
	for _, e := range got {
		if aggregate.PriceFloor(e.Price) != 0 {
			t.Fatalf("unexpected event %q", e.Title)
		}
	}
}

func TestFilter_Idempotent(t *testing.T) {
	events := []event.Event{
		mkEvent("a", "$20", &austin),
		mkEvent("b", "$200", &austin),
		mkEvent("c", "$20", &dallas),
		mkEvent("d", "Free", nil),
	}
	c := aggregate.Criteria{At: austin, MinPrice: 0, MaxPrice: 100, RadiusMiles: 100}

	once := aggregate.Filter(events, c)
	twice := aggregate.Filter(once, c)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter is not idempotent: %v vs %v", once, twice)
	}
	if len(once) != 1 || once[0].Title != "a" {
		t.Fatalf("unexpected result %v", once)
	}
}
