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
	eventbriteDefaultURL = "https://www.eventbriteapi.com/v3/events/search/"
	eventbriteHome       = "https://www.eventbrite.com"
)

type Eventbrite struct {
	cfg      config.SourceConfig
	endpoint string
	get      *getter
	log      *slog.Logger
}

func NewEventbrite(log *slog.Logger, c config.SourceConfig, client *http.Client) (aggregate.Source, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("%w: EVENTBRITE_API_KEY", ErrMissingCredential)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Eventbrite{
		cfg:      c,
		endpoint: orDefault(c.BaseURL, eventbriteDefaultURL),
		get:      newGetter(log, EventbriteName, c, client),
		log:      log,
	}, nil
}

func (e *Eventbrite) Name() string { return EventbriteName }

func (e *Eventbrite) Fetch(ctx context.Context, place, keyword string) ([]event.Event, error) {
	params := url.Values{}
	params.Set("location.address", place)
	if keyword != "" {
		params.Set("q", keyword)
	}
	params.Set("expand", "venue")
	params.Set("page_size", strconv.Itoa(pageSize(e.cfg)))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	body, err := e.get.get(ctx, e.endpoint, params, header)
	if err != nil {
		return nil, err
	}
	return parseEventbrite(e.log, body)
}

type eventbriteEvent struct {
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Description struct {
		Text string `json:"text"`
		HTML string `json:"html"`
	} `json:"description"`
	URL    string `json:"url"`
	IsFree bool   `json:"is_free"`
	Start  struct {
		Local string `json:"local"`
	} `json:"start"`
	Venue *struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
		Address   struct {
			City                    string `json:"city"`
			LocalizedAddressDisplay string `json:"localized_address_display"`
			Latitude                string `json:"latitude"`
			Longitude               string `json:"longitude"`
		} `json:"address"`
	} `json:"venue"`
}

func parseEventbrite(log *slog.Logger, body []byte) ([]event.Event, error) {
	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FetchError{Source: EventbriteName, Kind: aggregate.KindPayload, Err: err}
	}

	return decodeRecords(log, EventbriteName, envelope.Events, func(r eventbriteEvent) event.Event {
		date, clock := splitLocal(r.Start.Local)
		desc := r.Description.Text
		if desc == "" {
			desc = r.Description.HTML
		}
		e := event.Event{
			Title:         r.Name.Text,
			Description:   cleanText(desc),
			Price:         event.PlaceholderPrice,
			Date:          date,
			StartTime:     clock,
			StartDateTime: r.Start.Local,
			TicketURL:     orDefault(r.URL, eventbriteHome),
			Source:        EventbriteName,
		}
		if r.IsFree {
			e.Price = "Free"
		}
		if v := r.Venue; v != nil {
			e.Location = orDefault(v.Address.LocalizedAddressDisplay, v.Address.City)
			lat, lon := v.Latitude, v.Longitude
			if lat == "" || lon == "" {
				lat, lon = v.Address.Latitude, v.Address.Longitude
			}
			e.Latitude, e.Longitude = parseCoord(lat), parseCoord(lon)
		}
		return e
	}), nil
}
