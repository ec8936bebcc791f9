package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/domain/event"
	"github.com/geocoder89/whattodo/internal/observability"
	"github.com/gin-gonic/gin"
)

// StatusClientClosedRequest is the nginx convention for a caller that hung up mid search.
const StatusClientClosedRequest = 499

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString("request_id"); id != "" {
		return id
	}
	if id := observability.RequestIDFrom(ctx.Request.Context()); id != "" {
		return id
	}
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondUnavailable(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, code, message, nil)
}

// searchFailures maps pipeline errors to responses; first match wins. An empty message
// echoes the error text, which for validation failures names the offending parameter.
var searchFailures = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{aggregate.ErrUnknownSource, http.StatusNotFound, "not_found", "Source not found"},
	{event.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", ""},
	{aggregate.ErrUnresolvablePlace, http.StatusBadRequest, "unresolvable_place", "Could not resolve the city to a location"},
	{aggregate.ErrGeocoderUnavailable, http.StatusBadGateway, "geocoder_unavailable", "Location service is unavailable, try again later"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", "Search took too long"},
}

// RespondSearchError answers a failed search. Unknown errors are logged and hidden behind 500.
func RespondSearchError(ctx *gin.Context, log *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		// nobody is left to read a body
		ctx.AbortWithStatus(StatusClientClosedRequest)
		return
	}

	for _, f := range searchFailures {
		if !errors.Is(err, f.target) {
			continue
		}
		msg := f.message
		if msg == "" {
			msg = err.Error()
		}
		_ = ctx.Error(err)
		RespondError(ctx, f.status, f.code, msg, nil)
		return
	}

	log.ErrorContext(ctx.Request.Context(), "search failed", slog.String("err", err.Error()))
	_ = ctx.Error(err)
	RespondInternal(ctx, "Could not search events")
}
