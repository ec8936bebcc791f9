package sources

import (
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  hello   world ", want: "hello world"},
		{name: "html", in: "<p>Live <b>music</b></p><br/>tonight", want: "Live musictonight"},
		{name: "entities", in: "Rock &amp; Roll", want: "Rock & Roll"},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.in); got != tt.want {
				t.Fatalf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanText_Truncates(t *testing.T) {
	got := cleanText(strings.Repeat("a", maxDescriptionRunes+50))
	if n := len([]rune(got)); n != maxDescriptionRunes+1 {
		t.Fatalf("expected %d runes, got %d", maxDescriptionRunes+1, n)
	}
}

func TestPriceRange(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi *float64
		want   string
	}{
		{name: "range", lo: event.Float(20), hi: event.Float(55.5), want: "$20 - $55.5"},
		{name: "same", lo: event.Float(20), hi: event.Float(20), want: "$20"},
		{name: "floor only", lo: event.Float(9.99), want: "Starting at $9.99"},
		{name: "none", want: event.PlaceholderPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := priceRange(tt.lo, tt.hi); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitLocal(t *testing.T) {
	date, clock := splitLocal("2025-06-01T20:15:00")
	if date != "2025-06-01" || clock != "8:15 PM" {
		t.Fatalf("got %q %q", date, clock)
	}

	date, clock = splitLocal("2025-06-01")
	if date != "2025-06-01" || clock != "" {
		t.Fatalf("got %q %q", date, clock)
	}
}

func TestExponentialBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	capDelay := time.Second

	tests := []struct {
		attempt int
		min     time.Duration
	}{
		{attempt: 0, min: 100 * time.Millisecond},
		{attempt: 1, min: 200 * time.Millisecond},
		{attempt: 3, min: 800 * time.Millisecond},
		{attempt: 10, min: time.Second},
	}

	for _, tt := range tests {
		got := ExponentialBackoff(tt.attempt, base, capDelay)
		if got < tt.min || got > tt.min+tt.min/10 {
			t.Fatalf("attempt %d: got %v, want within [%v, %v]", tt.attempt, got, tt.min, tt.min+tt.min/10)
		}
	}
}
