package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/whattodo/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		ping       func(ctx context.Context) error
		shutting   bool
		wantStatus int
	}{
		{name: "no dependency", wantStatus: http.StatusOK},
		{name: "ping ok", ping: func(ctx context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "ping fails", ping: func(ctx context.Context) error { return errors.New("dial tcp: refused") }, wantStatus: http.StatusServiceUnavailable},
		{name: "shutting down", shutting: true, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.ping, nil, func() bool { return tt.shutting })
			r := gin.New()
			r.GET("/readyz", h.Readyz)

			if w := doGet(r, "/readyz", nil); w.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHealthz_IncludesStats(t *testing.T) {
	h := handlers.NewHealthHandler(nil, func() any { return map[string]int{"runs": 3} }, nil)
	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w := doGet(r, "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"runs":3`) {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestDocs(t *testing.T) {
	r := gin.New()
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	if w := doGet(r, "/docs", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "swagger-ui") {
		t.Fatalf("unexpected docs page %d", w.Code)
	}
	w := doGet(r, "/docs/openapi.yaml", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/events/all") {
		t.Fatalf("unexpected openapi document %d", w.Code)
	}

	again := doGet(r, "/docs/openapi.yaml", map[string]string{"If-None-Match": w.Header().Get("ETag")})
	if again.Code != http.StatusNotModified {
		t.Fatalf("expected 304 on revalidation, got %d", again.Code)
	}
}
