package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// the docs page loads swagger-ui from unpkg and bootstraps it inline
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

type SecurityOptions struct {
	DocsPrefix string
	// HSTS is only worth sending when TLS terminates in front of the service.
	HSTS bool
}

// SecurityHeaders sets browser hardening headers. Search results change with upstream
// inventory, so /events responses must be revalidated (ETag) while health checks are never stored.
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	if opts.DocsPrefix == "" {
		opts.DocsPrefix = "/docs"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if opts.HSTS {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		path := c.Request.URL.Path
		switch {
		case strings.HasPrefix(path, opts.DocsPrefix):
			h.Set("Content-Security-Policy", docsCSP)
		case path == "/healthz" || path == "/readyz" || path == "/metrics":
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Cache-Control", "no-store")
		default:
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Cache-Control", "no-cache")
		}
		c.Next()
	}
}
