package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/geocoder89/whattodo/internal/aggregate")

// Source is one event provider. Implementations convert every provider-specific problem into
// an error; they must not panic, but a panic is still contained to the call.
type Source interface {
	Name() string
	Fetch(ctx context.Context, place, keyword string) ([]event.Event, error)
}

// Failure kinds. Sources attach the provider side ones through a FailureKind() method;
// the scheduler assigns the rest.
const (
	KindTimeout     = "timeout"
	KindTransport   = "transport"
	KindStatus      = "status"
	KindPayload     = "payload"
	KindCircuitOpen = "circuit_open"
	KindRateLimited = "rate_limited"
	KindCanceled    = "canceled"
	KindPanic       = "panic"
	KindUnknown     = "unknown"
)

var errSourcePanic = errors.New("source panicked")

// Failure describes one (source, keyword) call that contributed no events.
type Failure struct {
	Source  string
	Keyword string
	Kind    string
	Err     error
	Elapsed time.Duration
}

type FanOutResult struct {
	Events   []event.Event
	Failures []Failure
	Calls    int
}

type Scheduler struct {
	sources        []Source
	callTimeout    time.Duration
	maxConcurrency int
	log            *slog.Logger
	metrics        Recorder
}

func NewScheduler(log *slog.Logger, sources []Source, callTimeout time.Duration, maxConcurrency int, metrics Recorder) *Scheduler {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		sources:        sources,
		callTimeout:    callTimeout,
		maxConcurrency: maxConcurrency,
		log:            log,
		metrics:        metrics,
	}
}

// FanOut calls every source once per keyword concurrently. A failed call only removes its own
// events; the error returned is the parent context's, in which case nothing is returned.
func (s *Scheduler) FanOut(ctx context.Context, place string, keywords []string) (FanOutResult, error) {
	type task struct {
		src     Source
		keyword string
	}

	tasks := make([]task, 0, len(s.sources)*len(keywords))
	for _, src := range s.sources {
		for _, kw := range keywords {
			tasks = append(tasks, task{src: src, keyword: kw})
		}
	}

	results := make([][]event.Event, len(tasks))
	failures := make([]*Failure, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}

	for i, t := range tasks {
		g.Go(func() error {
			results[i], failures[i] = s.call(gctx, t.src, place, t.keyword)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return FanOutResult{}, err
	}

	out := FanOutResult{Calls: len(tasks)}
	for i := range tasks {
		if failures[i] != nil {
			out.Failures = append(out.Failures, *failures[i])
			continue
		}
		out.Events = append(out.Events, results[i]...)
	}
	return out, nil
}

type outcome struct {
	events []event.Event
	err    error
}

func (s *Scheduler) call(ctx context.Context, src Source, place, keyword string) ([]event.Event, *Failure) {
	start := time.Now()
	name := src.Name()

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	callCtx, span := tracer.Start(callCtx, "source.fetch")
	span.SetAttributes(
		attribute.String("source", name),
		attribute.String("keyword", keyword),
	)
	defer span.End()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", errSourcePanic, r)}
			}
		}()
		evs, err := src.Fetch(callCtx, place, keyword)
		done <- outcome{events: evs, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-callCtx.Done():
		o = outcome{err: callCtx.Err()}
	}
	elapsed := time.Since(start)

	if o.err != nil {
		f := &Failure{
			Source:  name,
			Keyword: keyword,
			Kind:    classify(o.err),
			Err:     o.err,
			Elapsed: elapsed,
		}
		span.RecordError(o.err)
		span.SetStatus(codes.Error, f.Kind)
		s.metrics.ObserveSourceCall(name, f.Kind, elapsed, 0)
		s.log.WarnContext(ctx, "source call failed",
			slog.String("source", name),
			slog.String("keyword", keyword),
			slog.String("kind", f.Kind),
			slog.Int64("elapsed_ms", elapsed.Milliseconds()),
			slog.String("err", o.err.Error()),
		)
		return nil, f
	}

	span.SetAttributes(attribute.Int("events", len(o.events)))
	s.metrics.ObserveSourceCall(name, "ok", elapsed, len(o.events))
	s.log.DebugContext(ctx, "source call done",
		slog.String("source", name),
		slog.String("keyword", keyword),
		slog.Int("events", len(o.events)),
		slog.Int64("elapsed_ms", elapsed.Milliseconds()),
	)
	return o.events, nil
}

// classify prefers the kind a source attached to its own error.
func classify(err error) string {
	var k interface{ FailureKind() string }
	switch {
	case errors.As(err, &k):
		return k.FailureKind()
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, errSourcePanic):
		return KindPanic
	default:
		return KindUnknown
	}
}
