package event

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	PlaceholderTitle       = "No Title"
	PlaceholderDescription = "No description available."
	PlaceholderLocation    = "Unknown"
	PlaceholderPrice       = "Varies by ticket package"
)

// Event is the common shape every source adapter produces.
type Event struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Price         string   `json:"price"`
	Date          string   `json:"date,omitempty"`
	StartTime     string   `json:"start_time,omitempty"`
	StartDateTime string   `json:"start_datetime,omitempty"`
	TicketURL     string   `json:"ticket_url"`
	Source        string   `json:"source"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Coordinates returns the event position, ok is false when the event has none.
func (e Event) Coordinates() (Coordinates, bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *e.Latitude, Lon: *e.Longitude}, true
}

// DatePart returns the calendar date of the event, preferring Date and falling back to the
// date portion of StartDateTime. Both "T" and space separated timestamps are accepted.
func (e Event) DatePart() string {
	if d := cutDate(e.Date); d != "" {
		return d
	}
	if t, ok := ParseTimestamp(e.StartDateTime); ok {
		return t.Format(DateLayout)
	}
	return cutDate(e.StartDateTime)
}

func cutDate(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	return s
}

// StartsAt parses the most precise start the event carries, as the wall clock time at the
// venue. Providers send either naive local timestamps or ones with a zone offset; the offset
// is dropped so both forms order correctly against each other within one city. The result is
// expressed in UTC and must not be read as an instant.
func (e Event) StartsAt() (time.Time, bool) {
	if e.StartDateTime != "" {
		if t, ok := ParseTimestamp(e.StartDateTime); ok {
			return wallClock(t), true
		}
	}
	if d := e.DatePart(); d != "" {
		if t, err := time.Parse(DateLayout, d); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp accepts the ISO-8601 variants providers send (with or without zone).
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var ErrInvalidEvent = errors.New("invalid event")

// Normalize enforces the invariants downstream stages rely on: placeholders for required text,
// paired and in-range coordinates, and date fields that are either well formed or empty.
func (e Event) Normalize() (Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	e.TicketURL = strings.TrimSpace(e.TicketURL)
	e.Source = strings.TrimSpace(e.Source)

	if e.Source == "" || e.TicketURL == "" {
		return Event{}, ErrInvalidEvent
	}
	if e.Title == "" {
		e.Title = PlaceholderTitle
	}
	if strings.TrimSpace(e.Description) == "" {
		e.Description = PlaceholderDescription
	}
	if strings.TrimSpace(e.Location) == "" {
		e.Location = PlaceholderLocation
	}
	if strings.TrimSpace(e.Price) == "" {
		e.Price = PlaceholderPrice
	}

	if e.Latitude == nil || e.Longitude == nil {
		e.Latitude, e.Longitude = nil, nil
	} else if !(Coordinates{Lat: *e.Latitude, Lon: *e.Longitude}).Valid() {
		e.Latitude, e.Longitude = nil, nil
	}

	if e.Date != "" {
		if _, err := time.Parse(DateLayout, cutDate(e.Date)); err != nil {
			e.Date = ""
		}
	}
	if e.StartDateTime != "" {
		if _, ok := ParseTimestamp(e.StartDateTime); !ok {
			e.StartDateTime = ""
		}
	}

	return e, nil
}

func Float(v float64) *float64 {
	return &v
}
