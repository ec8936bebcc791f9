package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
	"github.com/gin-gonic/gin"
)

// EventSearcher is the part of aggregate.Pipeline the handlers use.
type EventSearcher interface {
	Run(ctx context.Context, req event.SearchRequest) ([]event.Event, error)
	RunSource(ctx context.Context, name, place, interest string) ([]event.Event, error)
	Sources() []string
}

type SourceStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type SourceQuery struct {
	Place    string `form:"city" json:"city" binding:"required,min=1,max=200"`
	Interest string `form:"interest" json:"interest" binding:"omitempty,max=200"`
}

type SearchHandler struct {
	searcher EventSearcher
	statuses func() []SourceStatus
	timeout  time.Duration
	log      *slog.Logger
}

// NewSearchHandler bounds every search by timeout; statuses may be nil, in which case
// /sources reports names only.
func NewSearchHandler(log *slog.Logger, searcher EventSearcher, timeout time.Duration, statuses func() []SourceStatus) *SearchHandler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SearchHandler{searcher: searcher, statuses: statuses, timeout: timeout, log: log}
}

// SearchAll handles GET /events/all.
func (h *SearchHandler) SearchAll(ctx *gin.Context) {
	var req event.SearchRequest

	if !BindQuery(ctx, &req) {
		return
	}
	req.Place = strings.TrimSpace(req.Place)

	runCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	events, err := h.searcher.Run(runCtx, req)
	if err != nil {
		RespondSearchError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": events,
		"count": len(events),
	})
}

// SearchSource handles GET /events/:source, a single provider without merging or filtering.
func (h *SearchHandler) SearchSource(ctx *gin.Context) {
	name := ctx.Param("source")

	var q SourceQuery
	if !BindQuery(ctx, &q) {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	events, err := h.searcher.RunSource(runCtx, name, strings.TrimSpace(q.Place), q.Interest)
	if err != nil {
		RespondSearchError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"source": name,
		"items":  events,
		"count":  len(events),
	})
}

// ListSources handles GET /sources.
func (h *SearchHandler) ListSources(ctx *gin.Context) {
	var items []SourceStatus
	if h.statuses != nil {
		items = h.statuses()
	} else {
		for _, name := range h.searcher.Sources() {
			items = append(items, SourceStatus{Name: name})
		}
	}
	if items == nil {
		items = []SourceStatus{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}
