package aggregate

import "time"

// Recorder receives pipeline measurements; observability.Prom implements it.
type Recorder interface {
	ObserveSourceCall(source, outcome string, elapsed time.Duration, events int)
	ObserveStage(stage string, elapsed time.Duration)
	ObserveMerge(combined, deduplicated, returned int)
}

type NopRecorder struct{}

func (NopRecorder) ObserveSourceCall(string, string, time.Duration, int) {}
func (NopRecorder) ObserveStage(string, time.Duration)                   {}
func (NopRecorder) ObserveMerge(int, int, int)                           {}
