package middlewares

import (
	"log/slog"
	"time"

	"github.com/geocoder89/whattodo/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

// RequestID keeps a caller supplied X-Request-Id or mints one, and puts it on the gin
// context and the request context so pipeline logs can be joined to the access log.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set(CtxRequestID, id)
		ctx.Request = ctx.Request.WithContext(observability.WithRequestID(ctx.Request.Context(), id))

		ctx.Next()
	}
}

// RequestLogger writes one "http_request" line per request. Search parameters are included
// so slow or failing cities show up without a trace backend.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path
		}
		status := ctx.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", ctx.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", ctx.Writer.Size()),
		}
		if source := ctx.Param("source"); source != "" {
			attrs = append(attrs, slog.String("source", source))
		}
		for _, key := range []string{"city", "interest", "sort_by"} {
			if v := ctx.Query(key); v != "" {
				attrs = append(attrs, slog.String(key, v))
			}
		}
		if len(ctx.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", ctx.Errors.String()))
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelWarn
		}
		// request_id comes from the request context through the trace handler
		log.LogAttrs(ctx.Request.Context(), level, "http_request", attrs...)
	}
}
