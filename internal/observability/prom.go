package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "whattodo"

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// sources
	SourceCallDuration *prometheus.HistogramVec
	SourceCallsTotal   *prometheus.CounterVec
	SourceEventsTotal  *prometheus.CounterVec

	// pipeline
	StageDuration *prometheus.HistogramVec
	MergeEvents   *prometheus.HistogramVec

	Stats *RunStats
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		SourceCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "call_duration_seconds",
				Help:      "Duration of one (source, keyword) fetch by outcome.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"source", "outcome"},
		),
		SourceCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "calls_total",
				Help:      "Source fetches by outcome (ok or failure kind).",
			},
			[]string{"source", "outcome"},
		),
		SourceEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "events_total",
				Help:      "Normalized events returned by each source.",
			},
			[]string{"source"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"stage"}, // geocode|fanout|merge|filter|sort
		),
		MergeEvents: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "events",
				Help:      "Event counts per run after each merge step.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"step"}, // combined|deduplicated|returned
		),
		Stats: NewRunStats(),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.SourceCallDuration, p.SourceCallsTotal, p.SourceEventsTotal,
		p.StageDuration, p.MergeEvents,
	)

	return p
}

func (p *Prom) ObserveSourceCall(source, outcome string, elapsed time.Duration, events int) {
	p.SourceCallDuration.WithLabelValues(source, outcome).Observe(elapsed.Seconds())
	p.SourceCallsTotal.WithLabelValues(source, outcome).Inc()
	if events > 0 {
		p.SourceEventsTotal.WithLabelValues(source).Add(float64(events))
	}
	p.Stats.observeCall(outcome == "ok")
}

func (p *Prom) ObserveStage(stage string, elapsed time.Duration) {
	p.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if stage == "fanout" {
		p.Stats.observeFanOut(elapsed)
	}
}

func (p *Prom) ObserveMerge(combined, deduplicated, returned int) {
	p.MergeEvents.WithLabelValues("combined").Observe(float64(combined))
	p.MergeEvents.WithLabelValues("deduplicated").Observe(float64(deduplicated))
	p.MergeEvents.WithLabelValues("returned").Observe(float64(returned))
	p.Stats.observeRun(combined, deduplicated, returned)
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
