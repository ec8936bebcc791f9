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
	yelpDefaultURL        = "https://api.yelp.com/v3/events"
	yelpHome              = "https://www.yelp.com/events"
	yelpDefaultCategories = "music,festivals,nightlife"
)

type Yelp struct {
	cfg      config.SourceConfig
	endpoint string
	get      *getter
	log      *slog.Logger
}

func NewYelp(log *slog.Logger, c config.SourceConfig, client *http.Client) (aggregate.Source, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("%w: YELP_API_KEY", ErrMissingCredential)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Yelp{
		cfg:      c,
		endpoint: orDefault(c.BaseURL, yelpDefaultURL),
		get:      newGetter(log, YelpName, c, client),
		log:      log,
	}, nil
}

func (y *Yelp) Name() string { return YelpName }

func (y *Yelp) Fetch(ctx context.Context, place, keyword string) ([]event.Event, error) {
	params := url.Values{}
	params.Set("location", place)
	params.Set("limit", strconv.Itoa(pageSize(y.cfg)))
	params.Set("sort_on", "popularity")
	params.Set("categories", orDefault(keyword, yelpDefaultCategories))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+y.cfg.APIKey)

	body, err := y.get.get(ctx, y.endpoint, params, header)
	if err != nil {
		return nil, err
	}
	return parseYelp(y.log, body)
}

type yelpEvent struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	EventSiteURL string   `json:"event_site_url"`
	Cost         *float64 `json:"cost"`
	CostMax      *float64 `json:"cost_max"`
	IsFree       bool     `json:"is_free"`
	TimeStart    string   `json:"time_start"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Location     struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
	} `json:"location"`
}

func parseYelp(log *slog.Logger, body []byte) ([]event.Event, error) {
	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FetchError{Source: YelpName, Kind: aggregate.KindPayload, Err: err}
	}

	return decodeRecords(log, YelpName, envelope.Events, func(r yelpEvent) event.Event {
		date, clock := splitLocal(r.TimeStart)
		e := event.Event{
			Title:         r.Name,
			Description:   cleanText(r.Description),
			Location:      orDefault(r.Location.Address1, r.Location.City),
			Price:         priceRange(r.Cost, r.CostMax),
			Date:          date,
			StartTime:     clock,
			StartDateTime: r.TimeStart,
			TicketURL:     orDefault(r.EventSiteURL, yelpHome),
			Source:        YelpName,
			Latitude:      r.Latitude,
			Longitude:     r.Longitude,
		}
		if r.IsFree {
			e.Price = "Free"
		}
		return e
	}), nil
}
