package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/domain/event"
	"github.com/geocoder89/whattodo/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	runFn       func(ctx context.Context, req event.SearchRequest) ([]event.Event, error)
	runSourceFn func(ctx context.Context, name, place, interest string) ([]event.Event, error)
	sources     []string
}

func (f *fakeSearcher) Run(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
	if f.runFn != nil {
		return f.runFn(ctx, req)
	}
	return []event.Event{}, nil
}

func (f *fakeSearcher) RunSource(ctx context.Context, name, place, interest string) ([]event.Event, error) {
	if f.runSourceFn != nil {
		return f.runSourceFn(ctx, name, place, interest)
	}
	return []event.Event{}, nil
}

func (f *fakeSearcher) Sources() []string { return f.sources }

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Fields []handlers.FieldError `json:"fields"`
			Query  string                `json:"query"`
		} `json:"details"`
	} `json:"error"`
}

type listResponse struct {
	Items []event.Event `json:"items"`
	Count int           `json:"count"`
}

func newSearchRouter(s handlers.EventSearcher) *gin.Engine {
	h := handlers.NewSearchHandler(nil, s, 0, nil)

	r := gin.New()
	r.GET("/events/all", h.SearchAll)
	r.GET("/events/:source", h.SearchSource)
	r.GET("/sources", h.ListSources)
	return r
}

func doGet(r http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchAll_AppliesDefaults(t *testing.T) {
	var got event.SearchRequest
	r := newSearchRouter(&fakeSearcher{runFn: func(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
		got = req
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected the run to be bounded by a deadline")
		}
		return []event.Event{{Title: "Jazz Night", Source: "SeatGeek", TicketURL: "https://seatgeek.com/j"}}, nil
	}})

	w := doGet(r, "/events/all?city=%20Austin%20&interest=jazz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	want := event.SearchRequest{
		Place:       "Austin",
		Interest:    "jazz",
		MinPrice:    0,
		MaxPrice:    event.DefaultMaxPrice,
		RadiusMiles: event.DefaultRadiusMiles,
		SortBy:      event.DefaultSort,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Items[0].Title != "Jazz Night" {
		t.Fatalf("unexpected body %+v", resp)
	}
}

func TestSearchAll_ETag(t *testing.T) {
	r := newSearchRouter(&fakeSearcher{runFn: func(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
		return []event.Event{{Title: "A"}}, nil
	}})

	first := doGet(r, "/events/all?city=Austin", nil)
	etag := first.Header().Get("ETag")
	if first.Code != http.StatusOK || etag == "" {
		t.Fatalf("expected 200 with ETag, got %d %q", first.Code, etag)
	}

	second := doGet(r, "/events/all?city=Austin", map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", second.Code)
	}
	if second.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body")
	}
}

func TestSearchAll_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantField string
		wantRule  string
	}{
		{name: "missing city", query: "", wantField: "city", wantRule: "required"},
		{name: "max below min", query: "city=Austin&min_price=50&max_price=10", wantField: "max_price", wantRule: "gtefield"},
		{name: "negative min", query: "city=Austin&min_price=-1", wantField: "min_price", wantRule: "gte"},
		{name: "zero radius", query: "city=Austin&radius=0", wantField: "radius", wantRule: "gt"},
		{name: "radius too large", query: "city=Austin&radius=5000", wantField: "radius", wantRule: "lte"},
		{name: "bad date", query: "city=Austin&date=06-01-2025", wantField: "date", wantRule: "datetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			r := newSearchRouter(&fakeSearcher{runFn: func(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
				called = true
				return nil, nil
			}})

			w := doGet(r, "/events/all?"+tt.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}
			if called {
				t.Fatalf("pipeline must not run for an invalid request")
			}

			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != "invalid_request" {
				t.Fatalf("unexpected code %q", resp.Error.Code)
			}
			for _, f := range resp.Error.Details.Fields {
				if f.Field == tt.wantField && f.Rule == tt.wantRule {
					return
				}
			}
			t.Fatalf("expected field %s/%s in %+v", tt.wantField, tt.wantRule, resp.Error.Details.Fields)
		})
	}
}

func TestSearchAll_NonNumericPrice(t *testing.T) {
	r := newSearchRouter(&fakeSearcher{})

	w := doGet(r, "/events/all?city=Austin&max_price=cheap", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Details.Query != "invalid_number" {
		t.Fatalf("unexpected details %s", w.Body.String())
	}
}

func TestSearchAll_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid sort", err: fmt.Errorf("%w: bad sort", event.ErrInvalidRequest), wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unknown place", err: fmt.Errorf("%w: Atlantis", aggregate.ErrUnresolvablePlace), wantStatus: http.StatusBadRequest, wantCode: "unresolvable_place"},
		{name: "geocoder down", err: aggregate.ErrGeocoderUnavailable, wantStatus: http.StatusBadGateway, wantCode: "geocoder_unavailable"},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantCode: "timeout"},
		{name: "unexpected", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newSearchRouter(&fakeSearcher{runFn: func(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
				return nil, tt.err
			}})

			w := doGet(r, "/events/all?city=Austin", nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Fatalf("got code %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestSearchAll_ClientGoneGetsNoBody(t *testing.T) {
	r := newSearchRouter(&fakeSearcher{runFn: func(ctx context.Context, req event.SearchRequest) ([]event.Event, error) {
		return nil, context.Canceled
	}})

	w := doGet(r, "/events/all?city=Austin", nil)
	if w.Code != handlers.StatusClientClosedRequest || w.Body.Len() != 0 {
		t.Fatalf("got %d %q, want 499 with empty body", w.Code, w.Body.String())
	}
}

func TestSearchSource(t *testing.T) {
	r := newSearchRouter(&fakeSearcher{runSourceFn: func(ctx context.Context, name, place, interest string) ([]event.Event, error) {
		if name != "seatgeek" {
			return nil, fmt.Errorf("%w: %s", aggregate.ErrUnknownSource, name)
		}
		return []event.Event{{Title: place + "/" + interest}}, nil
	}})

	w := doGet(r, "/events/seatgeek?city=Austin&interest=jazz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Items[0].Title != "Austin/jazz" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	if w := doGet(r, "/events/meetup?city=Austin", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown source, got %d", w.Code)
	}
	if w := doGet(r, "/events/seatgeek", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without city, got %d", w.Code)
	}
}

func TestListSources(t *testing.T) {
	r := newSearchRouter(&fakeSearcher{sources: []string{"SeatGeek", "Ticketmaster"}})

	w := doGet(r, "/sources", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	var resp struct {
		Items []handlers.SourceStatus `json:"items"`
		Count int                     `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.Items[1].Name != "Ticketmaster" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
