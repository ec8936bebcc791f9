package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      event.Event
		wantErr bool
		check   func(t *testing.T, e event.Event)
	}{
		{
			name:    "missing source",
			in:      event.Event{Title: "x", TicketURL: "https://x.com"},
			wantErr: true,
		},
		{
			name:    "missing ticket url",
			in:      event.Event{Title: "x", Source: "s"},
			wantErr: true,
		},
		{
			name: "placeholders",
			in:   event.Event{TicketURL: "https://x.com", Source: "s"},
			check: func(t *testing.T, e event.Event) {
				if e.Title != event.PlaceholderTitle || e.Description != event.PlaceholderDescription ||
					e.Location != event.PlaceholderLocation || e.Price != event.PlaceholderPrice {
					t.Fatalf("placeholders not applied: %+v", e)
				}
			},
		},
		{
			name: "unpaired coordinates dropped",
			in:   event.Event{TicketURL: "https://x.com", Source: "s", Latitude: event.Float(10)},
			check: func(t *testing.T, e event.Event) {
				if e.Latitude != nil || e.Longitude != nil {
					t.Fatalf("expected coordinates dropped")
				}
			},
		},
		{
			name: "out of range coordinates dropped",
			in:   event.Event{TicketURL: "https://x.com", Source: "s", Latitude: event.Float(95), Longitude: event.Float(10)},
			check: func(t *testing.T, e event.Event) {
				if e.Latitude != nil || e.Longitude != nil {
					t.Fatalf("expected coordinates dropped")
				}
			},
		},
		{
			name: "bad dates blanked",
			in:   event.Event{TicketURL: "https://x.com", Source: "s", Date: "June 1st", StartDateTime: "tonight"},
			check: func(t *testing.T, e event.Event) {
				if e.Date != "" || e.StartDateTime != "" {
					t.Fatalf("expected blank dates, got %q %q", e.Date, e.StartDateTime)
				}
			},
		},
		{
			name: "valid fields kept",
			in: event.Event{
				Title: " Show ", TicketURL: "https://x.com", Source: "s",
				Date: "2025-06-01", StartDateTime: "2025-06-01T20:00:00-05:00",
				Latitude: event.Float(30), Longitude: event.Float(-97),
			},
			check: func(t *testing.T, e event.Event) {
				if e.Title != "Show" || e.Date != "2025-06-01" || e.StartDateTime == "" || e.Latitude == nil {
					t.Fatalf("valid fields were altered: %+v", e)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				if !errors.Is(err, event.ErrInvalidEvent) {
					t.Fatalf("expected ErrInvalidEvent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestStartsAt(t *testing.T) {
	e := event.Event{Date: "2025-06-01"}
	got, ok := e.StartsAt()
	if !ok || got.Day() != 1 {
		t.Fatalf("expected date fallback, got %v %v", got, ok)
	}

	e = event.Event{StartDateTime: "2025-06-01T20:30:00"}
	got, ok = e.StartsAt()
	if !ok || got.Hour() != 20 || got.Minute() != 30 {
		t.Fatalf("expected timestamp, got %v %v", got, ok)
	}
	if e.DatePart() != "2025-06-01" {
		t.Fatalf("unexpected DatePart %q", e.DatePart())
	}

	if _, ok := (event.Event{}).StartsAt(); ok {
		t.Fatalf("expected no start for an undated event")
	}
}

func TestDatePart(t *testing.T) {
	tests := []struct {
		name string
		e    event.Event
		want string
	}{
		{name: "date", e: event.Event{Date: "2025-06-01"}, want: "2025-06-01"},
		{name: "iso timestamp", e: event.Event{StartDateTime: "2025-06-01T20:00:00"}, want: "2025-06-01"},
		{name: "space separated", e: event.Event{StartDateTime: "2025-06-01 20:00:00"}, want: "2025-06-01"},
		{name: "with offset", e: event.Event{StartDateTime: "2025-06-01T23:30:00-05:00"}, want: "2025-06-01"},
		{name: "date wins", e: event.Event{Date: "2025-06-02", StartDateTime: "2025-06-01 20:00:00"}, want: "2025-06-02"},
		{name: "none", e: event.Event{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.DatePart(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_KeepsSpaceSeparatedTimestamp(t *testing.T) {
	e, err := event.Event{
		Title:         "Jazz Night",
		TicketURL:     "https://seatgeek.com/jazz-night",
		Source:        "SeatGeek",
		StartDateTime: "2025-06-01 20:00:00",
	}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if e.StartDateTime == "" || e.DatePart() != "2025-06-01" {
		t.Fatalf("start=%q date=%q", e.StartDateTime, e.DatePart())
	}
}

func TestStartsAt_UsesVenueWallClock(t *testing.T) {
	withOffset, ok := event.Event{StartDateTime: "2025-06-01T20:00:00+02:00"}.StartsAt()
	if !ok {
		t.Fatalf("expected a start")
	}
	naive, _ := event.Event{StartDateTime: "2025-06-01T19:00:00"}.StartsAt()

	if withOffset.Hour() != 20 || withOffset.Location() != time.UTC {
		t.Fatalf("offset must be dropped, got %v", withOffset)
	}
	if !naive.Before(withOffset) {
		t.Fatalf("19:00 must sort before 20:00 regardless of zone form: %v vs %v", naive, withOffset)
	}
}
