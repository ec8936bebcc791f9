package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/config"
	"github.com/geocoder89/whattodo/internal/domain/event"
)

const (
	ticketmasterDefaultURL = "https://app.ticketmaster.com/discovery/v2/events.json"
	ticketmasterHome       = "https://www.ticketmaster.com"
)

type Ticketmaster struct {
	cfg      config.SourceConfig
	endpoint string
	get      *getter
	log      *slog.Logger
}

func NewTicketmaster(log *slog.Logger, c config.SourceConfig, client *http.Client) (aggregate.Source, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("%w: TICKETMASTER_API_KEY", ErrMissingCredential)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ticketmaster{
		cfg:      c,
		endpoint: orDefault(c.BaseURL, ticketmasterDefaultURL),
		get:      newGetter(log, TicketmasterName, c, client),
		log:      log,
	}, nil
}

func (t *Ticketmaster) Name() string { return TicketmasterName }

func (t *Ticketmaster) Fetch(ctx context.Context, place, keyword string) ([]event.Event, error) {
	params := url.Values{}
	params.Set("apikey", t.cfg.APIKey)
	params.Set("city", place)
	if keyword != "" {
		params.Set("keyword", keyword)
	}
	params.Set("size", strconv.Itoa(pageSize(t.cfg)))

	body, err := t.get.get(ctx, t.endpoint, params, nil)
	if err != nil {
		return nil, err
	}
	return parseTicketmaster(t.log, body)
}

type ticketmasterEvent struct {
	Name  string `json:"name"`
	Info  string `json:"info"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	PriceRanges []struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			Location struct {
				Latitude  string `json:"latitude"`
				Longitude string `json:"longitude"`
			} `json:"location"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// parseTicketmaster accepts a body without "_embedded", which is how the API reports zero hits.
func parseTicketmaster(log *slog.Logger, body []byte) ([]event.Event, error) {
	var envelope struct {
		Embedded struct {
			Events []json.RawMessage `json:"events"`
		} `json:"_embedded"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FetchError{Source: TicketmasterName, Kind: aggregate.KindPayload, Err: err}
	}

	return decodeRecords(log, TicketmasterName, envelope.Embedded.Events, func(r ticketmasterEvent) event.Event {
		d, clock := r.Dates.Start.LocalDate, r.Dates.Start.LocalTime
		e := event.Event{
			Title:       r.Name,
			Description: cleanText(r.Info),
			Price:       event.PlaceholderPrice,
			Date:        d,
			StartTime:   humanTime(clock),
			TicketURL:   orDefault(r.URL, ticketmasterHome),
			Source:      TicketmasterName,
		}
		if d != "" && clock != "" {
			e.StartDateTime = d + "T" + clock
		}
		if len(r.PriceRanges) > 0 {
			e.Price = priceRange(r.PriceRanges[0].Min, r.PriceRanges[0].Max)
		}
		if len(r.Embedded.Venues) > 0 {
			v := r.Embedded.Venues[0]
			e.Location = v.City.Name
			e.Latitude = parseCoord(v.Location.Latitude)
			e.Longitude = parseCoord(v.Location.Longitude)
		}
		return e
	}), nil
}
