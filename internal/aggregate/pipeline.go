package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
	"github.com/geocoder89/whattodo/internal/geocode"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUnresolvablePlace   = errors.New("unable to resolve place to coordinates")
	ErrGeocoderUnavailable = errors.New("geocoder unavailable")
	ErrUnknownSource       = errors.New("unknown source")
)

// Locator resolves a place name to coordinates; geocode.Resolver implements it.
type Locator interface {
	Locate(ctx context.Context, place string) (event.Coordinates, error)
}

type Config struct {
	CallTimeout    time.Duration
	MaxConcurrency int
}

type Pipeline struct {
	log       *slog.Logger
	locator   Locator
	sources   []Source
	scheduler *Scheduler
	metrics   Recorder
	cfg       Config
}

func NewPipeline(log *slog.Logger, locator Locator, sources []Source, cfg Config, metrics Recorder) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &Pipeline{
		log:       log,
		locator:   locator,
		sources:   sources,
		scheduler: NewScheduler(log, sources, cfg.CallTimeout, cfg.MaxConcurrency, metrics),
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (p *Pipeline) Sources() []string {
	names := make([]string, len(p.sources))
	for i, s := range p.sources {
		names[i] = s.Name()
	}
	return names
}

// Run validates the request, resolves the place, fans out to every source, then merges,
// filters and sorts the complete result set.
func (p *Pipeline) Run(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	spec, _ := event.ParseSort(req.SortBy)

	runID := uuid.NewString()
	log := p.log.With(
		slog.String("op", "Pipeline.Run"),
		slog.String("run_id", runID),
		slog.String("place", req.Place),
	)

	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("place", req.Place))

	start := time.Now()
	at, err := p.locate(ctx, req.Place)
	p.metrics.ObserveStage("geocode", time.Since(start))
	if err != nil {
		log.InfoContext(ctx, "place not resolved", slog.String("err", err.Error()))
		return nil, err
	}

	keywords := Keywords(req.Interest)

	start = time.Now()
	fan, err := p.scheduler.FanOut(ctx, req.Place, keywords)
	p.metrics.ObserveStage("fanout", time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	merged := Dedupe(fan.Events)
	p.metrics.ObserveStage("merge", time.Since(start))

	start = time.Now()
	filtered := Filter(merged, Criteria{
		At:          at,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		RadiusMiles: req.RadiusMiles,
		Date:        req.Date,
	})
	p.metrics.ObserveStage("filter", time.Since(start))

	start = time.Now()
	out := Sort(filtered, spec)
	p.metrics.ObserveStage("sort", time.Since(start))

	p.metrics.ObserveMerge(len(fan.Events), len(merged), len(out))
	span.SetAttributes(
		attribute.Int("calls", fan.Calls),
		attribute.Int("failures", len(fan.Failures)),
		attribute.Int("combined", len(fan.Events)),
		attribute.Int("deduplicated", len(merged)),
		attribute.Int("returned", len(out)),
	)
	log.InfoContext(ctx, "pipeline finished",
		slog.Any("keywords", keywords),
		slog.Int("calls", fan.Calls),
		slog.Int("failures", len(fan.Failures)),
		slog.Int("combined", len(fan.Events)),
		slog.Int("deduplicated", len(merged)),
		slog.Int("returned", len(out)),
	)

	return out, nil
}

// RunSource queries a single registered source with the caller's interest, without merging
// or filtering.
func (p *Pipeline) RunSource(ctx context.Context, name, place, interest string) ([]event.Event, error) {
	var src Source
	for _, s := range p.sources {
		if strings.EqualFold(s.Name(), name) {
			src = s
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if strings.TrimSpace(place) == "" {
		return nil, fmt.Errorf("%w: city is required", event.ErrInvalidRequest)
	}

	keywords := []string{strings.TrimSpace(interest)}
	if keywords[0] == "" {
		keywords = Keywords("")
	}

	single := NewScheduler(p.log, []Source{src}, p.cfg.CallTimeout, p.cfg.MaxConcurrency, p.metrics)
	fan, err := single.FanOut(ctx, place, keywords)
	if err != nil {
		return nil, err
	}
	return Dedupe(fan.Events), nil
}

func (p *Pipeline) locate(ctx context.Context, place string) (event.Coordinates, error) {
	at, err := p.locator.Locate(ctx, place)
	switch {
	case err == nil:
		if !at.Valid() {
			return event.Coordinates{}, fmt.Errorf("%w: %s", ErrUnresolvablePlace, place)
		}
		return at, nil
	case errors.Is(err, geocode.ErrNotFound):
		return event.Coordinates{}, fmt.Errorf("%w: %s", ErrUnresolvablePlace, place)
	case ctx.Err() != nil:
		return event.Coordinates{}, ctx.Err()
	default:
		return event.Coordinates{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}
}
