package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/geocoder89/whattodo/internal/geocode")

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim usage policy requires an identifying User-Agent and at most one request per second.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

type NominatimOption func(*Nominatim)

func WithBaseURL(baseURL string) NominatimOption {
	return func(n *Nominatim) {
		if strings.TrimSpace(baseURL) != "" {
			n.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) NominatimOption {
	return func(n *Nominatim) {
		if client != nil {
			n.httpClient = client
		}
	}
}

func WithUserAgent(userAgent string) NominatimOption {
	return func(n *Nominatim) {
		n.userAgent = userAgent
	}
}

func WithMinInterval(interval time.Duration) NominatimOption {
	return func(n *Nominatim) {
		if interval <= 0 {
			n.limiter = nil
			return
		}
		n.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

func NewNominatim(opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		baseURL:    DefaultNominatimURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "WhatToDo/1.0",
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// StatusError is a non-200 answer from Nominatim. 429 and 5xx mean the service is
// throttling or down, never that the place does not exist.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geocode: nominatim answered %d", e.Status)
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves query to the best single match. A place Nominatim does not know is
// Result{Found: false} with a nil error.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, nil
	}
	if n == nil {
		return Result{}, errors.New("geocode: nominatim is nil")
	}

	ctx, span := tracer.Start(ctx, "geocode.nominatim")
	defer span.End()
	span.SetAttributes(attribute.String("geocode.query", query))

	// the shared limiter keeps the whole process inside the usage policy
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return Result{}, err
		}
	}

	res, err := n.lookup(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Bool("geocode.found", res.Found))
	return res, nil
}

func (n *Nominatim) lookup(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("q", query)

	endpoint := strings.TrimRight(n.baseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(n.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Result{}, &StatusError{Status: resp.StatusCode}
	}

	var hits []nominatimHit
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&hits); err != nil {
		return Result{}, fmt.Errorf("geocode: decode: %w", err)
	}
	if len(hits) == 0 {
		return Result{}, nil
	}
	return hits[0].result()
}

func (h nominatimHit) result() (Result, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(h.Lat), 64)
	if err != nil {
		return Result{}, fmt.Errorf("geocode: lat %q: %w", h.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(h.Lon), 64)
	if err != nil {
		return Result{}, fmt.Errorf("geocode: lon %q: %w", h.Lon, err)
	}
	return Result{Lat: lat, Lon: lon, Found: true, DisplayName: h.DisplayName}, nil
}
