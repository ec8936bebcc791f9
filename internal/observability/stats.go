package observability

import (
	"sync/atomic"
	"time"
)

// RunStats keeps process-local counters for /healthz, independent of the Prometheus registry.
type RunStats struct {
	runs         atomic.Uint64
	calls        atomic.Uint64
	failedCalls  atomic.Uint64
	returned     atomic.Uint64
	deduplicated atomic.Uint64

	// fan-out duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewRunStats() *RunStats {
	return &RunStats{}
}

func (s *RunStats) observeCall(ok bool) {
	s.calls.Add(1)
	if !ok {
		s.failedCalls.Add(1)
	}
}

func (s *RunStats) observeRun(combined, deduplicated, returned int) {
	s.runs.Add(1)
	if removed := combined - deduplicated; removed > 0 {
		s.deduplicated.Add(uint64(removed))
	}
	if returned > 0 {
		s.returned.Add(uint64(returned))
	}
}

func (s *RunStats) observeFanOut(d time.Duration) {
	ns := d.Nanoseconds()
	s.durationCount.Add(1)
	s.durationTotal.Add(ns)

	for {
		curr := s.durationMax.Load()

		if ns <= curr {
			return
		}

		if s.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type RunStatsSnapshot struct {
	Runs              uint64 `json:"runs"`
	SourceCalls       uint64 `json:"source_calls"`
	FailedSourceCalls uint64 `json:"failed_source_calls"`
	EventsReturned    uint64 `json:"events_returned"`
	DuplicatesDropped uint64 `json:"duplicates_dropped"`
	AvgFanOutMillis   int64  `json:"avg_fanout_ms"`
	MaxFanOutMillis   int64  `json:"max_fanout_ms"`
}

func (s *RunStats) Snapshot() RunStatsSnapshot {
	count := s.durationCount.Load()
	total := s.durationTotal.Load()
	longest := s.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return RunStatsSnapshot{
		Runs:              s.runs.Load(),
		SourceCalls:       s.calls.Load(),
		FailedSourceCalls: s.failedCalls.Load(),
		EventsReturned:    s.returned.Load(),
		DuplicatesDropped: s.deduplicated.Load(),
		AvgFanOutMillis:   avg.Milliseconds(),
		MaxFanOutMillis:   time.Duration(longest).Milliseconds(),
	}
}
