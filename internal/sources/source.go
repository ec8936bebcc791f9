package sources

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/config"
)

var (
	ErrCircuitOpen       = errors.New("circuit breaker open")
	ErrMissingCredential = errors.New("missing credential")
)

// FetchError is the only error type adapters return. Kind is one of the aggregate.Kind*
// failure kinds.
type FetchError struct {
	Source string
	Kind   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) FailureKind() string { return e.Kind }

const (
	SeatGeekName     = "SeatGeek"
	TicketmasterName = "Ticketmaster"
	EventbriteName   = "Eventbrite"
	YelpName         = "Yelp"
)

// NewFromConfig builds one adapter by name. Each adapter receives only its own config.
func NewFromConfig(log *slog.Logger, name string, c config.SourceConfig, client *http.Client) (aggregate.Source, error) {
	switch name {
	case SeatGeekName:
		return NewSeatGeek(log, c, client)
	case TicketmasterName:
		return NewTicketmaster(log, c, client)
	case EventbriteName:
		return NewEventbrite(log, c, client)
	case YelpName:
		return NewYelp(log, c, client)
	default:
		return nil, fmt.Errorf("%w: %s", aggregate.ErrUnknownSource, name)
	}
}

// Registry is the ordered set of breaker-wrapped adapters the process serves.
type Registry []*Protected

// Sources returns the registry in registration order, which is the fan-out order.
func (r Registry) Sources() []aggregate.Source {
	out := make([]aggregate.Source, len(r))
	for i, p := range r {
		out[i] = p
	}
	return out
}

// Build returns every enabled, credentialed adapter wrapped in a circuit breaker, in a fixed
// order.
func Build(log *slog.Logger, cfg config.SourcesConfig, client *http.Client, callTimeout time.Duration) Registry {
	entries := []struct {
		name string
		cfg  config.SourceConfig
	}{
		{SeatGeekName, cfg.SeatGeek},
		{TicketmasterName, cfg.Ticketmaster},
		{EventbriteName, cfg.Eventbrite},
		{YelpName, cfg.Yelp},
	}

	out := make(Registry, 0, len(entries))
	for _, e := range entries {
		if !e.cfg.Enabled {
			log.Info("source disabled", slog.String("source", e.name))
			continue
		}
		src, err := NewFromConfig(log, e.name, e.cfg, client)
		if err != nil {
			log.Warn("source not registered", slog.String("source", e.name), slog.String("err", err.Error()))
			continue
		}
		out = append(out, NewProtected(src, ProtectedConfig{
			Timeout:          callTimeout,
			FailureThreshold: e.cfg.BreakerThreshold,
			Cooldown:         e.cfg.BreakerCooldown,
		}))
		log.Info("source registered", slog.String("source", e.name))
	}
	return out
}
