package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/whattodo/internal/domain/event"
)

var ErrNotFound = errors.New("geocode: place not found")

type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Found       bool    `json:"found"`
	DisplayName string  `json:"display_name,omitempty"`
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Result, error)
}

// Cache stores lookups, including misses, so a bad place name is not re-queried.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, r Result)
}

type Resolver struct {
	geocoder Geocoder
	cache    Cache
	log      *slog.Logger
}

func NewResolver(log *slog.Logger, geocoder Geocoder, cache Cache) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		geocoder: geocoder,
		cache:    cache,
		log:      log,
	}
}

func (r *Resolver) Resolve(ctx context.Context, query string) (Result, bool, error) {
	if r == nil || r.geocoder == nil {
		return Result{Found: false}, false, nil
	}
	if strings.TrimSpace(query) == "" {
		return Result{Found: false}, false, nil
	}

	key := CacheKey(query)
	if r.cache != nil {
		if res, ok := r.cache.Get(ctx, key); ok {
			return res, true, nil
		}
	}

	res, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		return Result{}, false, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, key, res)
	}
	return res, false, nil
}

// Locate adapts Resolve to the pipeline: a miss becomes ErrNotFound.
func (r *Resolver) Locate(ctx context.Context, place string) (event.Coordinates, error) {
	res, cached, err := r.Resolve(ctx, place)
	if err != nil {
		return event.Coordinates{}, err
	}
	r.log.DebugContext(ctx, "place resolved",
		slog.String("place", place),
		slog.Bool("found", res.Found),
		slog.Bool("cached", cached),
	)
	if !res.Found {
		return event.Coordinates{}, ErrNotFound
	}
	return event.Coordinates{Lat: res.Lat, Lon: res.Lon}, nil
}

func CacheKey(query string) string {
	return "geocode:v1:" + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
