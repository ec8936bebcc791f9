package observability

import (
	"io"
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// NewLogger picks a colored console handler for "local", JSON otherwise, and stamps trace ids
// on every record that carries a span.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == envDev || env == envLocal {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if env == envLocal {
		handler = NewPrettyHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(NewTraceHandler(handler))
}
