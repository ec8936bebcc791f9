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
	seatGeekDefaultURL = "https://api.seatgeek.com/2/events"
	seatGeekHome       = "https://seatgeek.com"
)

type SeatGeek struct {
	cfg      config.SourceConfig
	endpoint string
	get      *getter
	log      *slog.Logger
}

func NewSeatGeek(log *slog.Logger, c config.SourceConfig, client *http.Client) (aggregate.Source, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("%w: SEATGEEK_API_KEY", ErrMissingCredential)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SeatGeek{
		cfg:      c,
		endpoint: orDefault(c.BaseURL, seatGeekDefaultURL),
		get:      newGetter(log, SeatGeekName, c, client),
		log:      log,
	}, nil
}

func (s *SeatGeek) Name() string { return SeatGeekName }

func (s *SeatGeek) Fetch(ctx context.Context, place, keyword string) ([]event.Event, error) {
	params := url.Values{}
	params.Set("client_id", s.cfg.APIKey)
	if s.cfg.APISecret != "" {
		params.Set("client_secret", s.cfg.APISecret)
	}
	params.Set("venue.city", place)
	if keyword != "" {
		params.Set("q", keyword)
	}
	params.Set("per_page", strconv.Itoa(pageSize(s.cfg)))

	body, err := s.get.get(ctx, s.endpoint, params, nil)
	if err != nil {
		return nil, err
	}
	return parseSeatGeek(s.log, body)
}

type seatGeekEvent struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	DatetimeLocal string `json:"datetime_local"`
	Venue         struct {
		DisplayLocation string `json:"display_location"`
		Location        *struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		} `json:"location"`
	} `json:"venue"`
	Stats struct {
		LowestPrice  *float64 `json:"lowest_price"`
		HighestPrice *float64 `json:"highest_price"`
	} `json:"stats"`
}

func parseSeatGeek(log *slog.Logger, body []byte) ([]event.Event, error) {
	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FetchError{Source: SeatGeekName, Kind: aggregate.KindPayload, Err: err}
	}

	return decodeRecords(log, SeatGeekName, envelope.Events, func(r seatGeekEvent) event.Event {
		date, clock := splitLocal(r.DatetimeLocal)
		e := event.Event{
			Title:         r.Title,
			Description:   cleanText(r.Description),
			Location:      r.Venue.DisplayLocation,
			Price:         priceRange(r.Stats.LowestPrice, r.Stats.HighestPrice),
			Date:          date,
			StartTime:     clock,
			StartDateTime: r.DatetimeLocal,
			TicketURL:     orDefault(r.URL, seatGeekHome),
			Source:        SeatGeekName,
		}
		if loc := r.Venue.Location; loc != nil {
			e.Latitude, e.Longitude = loc.Lat, loc.Lon
		}
		return e
	}), nil
}

func pageSize(c config.SourceConfig) int {
	if c.PageSize <= 0 {
		return 10
	}
	if c.PageSize > 200 {
		return 200
	}
	return c.PageSize
}
