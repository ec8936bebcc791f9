package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/config"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// NewHTTPClient is shared by all adapters; per-call deadlines come from the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// getter performs throttled GETs with retry on transport errors, 429 and 5xx.
type getter struct {
	source     string
	client     *http.Client
	limiter    *rate.Limiter
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	log        *slog.Logger
}

func newGetter(log *slog.Logger, source string, c config.SourceConfig, client *http.Client) *getter {
	if client == nil {
		client = NewHTTPClient(15 * time.Second)
	}
	var limiter *rate.Limiter
	if c.RatePerSecond > 0 {
		burst := c.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(c.RatePerSecond), burst)
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &getter{
		source:     source,
		client:     client,
		limiter:    limiter,
		retries:    retries,
		backoff:    c.Backoff,
		maxBackoff: c.MaxBackoff,
		log:        log.With(slog.String("source", source)),
	}
}

func (g *getter) get(ctx context.Context, endpoint string, params url.Values, header http.Header) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			delay := ExponentialBackoff(attempt-1, g.backoff, g.maxBackoff)
			g.log.DebugContext(ctx, "retrying source request",
				slog.Int("attempt", attempt),
				slog.Int64("delay_ms", delay.Milliseconds()),
				slog.String("err", lastErr.Error()),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, g.wrap(ctx.Err(), 0)
			}
		}

		body, retry, err := g.once(ctx, endpoint, params, header)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, lastErr
}

func (g *getter) once(ctx context.Context, endpoint string, params url.Values, header http.Header) ([]byte, bool, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, false, &FetchError{Source: g.source, Kind: aggregate.KindRateLimited, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, g.wrap(err, 0)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// a cancelled parent is final, a transport error is worth another try
		return nil, ctx.Err() == nil, g.wrap(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, ctx.Err() == nil, g.wrap(err, 0)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, &FetchError{
			Source: g.source,
			Kind:   aggregate.KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("GET %s: %s", req.URL.Path, snippet(body)),
		}
	}
	return body, false, nil
}

func (g *getter) wrap(err error, status int) error {
	kind := aggregate.KindTransport
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = aggregate.KindTimeout
	}
	return &FetchError{Source: g.source, Kind: kind, Status: status, Err: err}
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
