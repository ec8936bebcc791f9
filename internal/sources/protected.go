package sources

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/domain/event"
)

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per fetch
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// Protected wraps a source with a per-call timeout and a circuit breaker, so a provider
// that keeps failing is skipped quickly instead of costing every request its full timeout.
type Protected struct {
	inner aggregate.Source
	cfg   ProtectedConfig
	now   func() time.Time
	mu    sync.Mutex

	state string

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtected(inner aggregate.Source, cfg ProtectedConfig) *Protected {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Protected{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
}

func (p *Protected) Name() string { return p.inner.Name() }

func (p *Protected) Fetch(ctx context.Context, place, keyword string) ([]event.Event, error) {
	// fail-fast gate
	if !p.allowRequest() {
		return nil, &FetchError{Source: p.Name(), Kind: aggregate.KindCircuitOpen, Err: ErrCircuitOpen}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	events, err := p.inner.Fetch(fetchCtx, place, keyword)

	// a caller that hung up says nothing about the provider's health. A deadline does: the
	// scheduler's per-call timeout usually fires before ours, and a provider that keeps
	// running into it has to trip the breaker.
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		p.release()
		return nil, err
	}
	if err != nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && !isTimeout(err) {
		err = &FetchError{Source: p.Name(), Kind: aggregate.KindTimeout, Err: err}
	}

	p.afterRequest(err)

	return events, err
}

func (p *Protected) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateOpen && p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
		return StateHalfOpen
	}
	return p.state
}

func (p *Protected) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateClosed:
		return true
	case StateOpen:
		// cooldown has passed? move to half open
		if p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
			p.state = StateHalfOpen
			p.halfOpenInFlight = 1
			return true
		}
		return false
	case StateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *Protected) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}
}

func (p *Protected) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// half-open call just finished
	if p.state == StateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil || isClientSide(err) {
		p.consecutiveFailures = 0
		p.state = StateClosed
		return
	}

	p.consecutiveFailures++

	// if half-open failed, reopen immediately
	if p.state == StateHalfOpen {
		p.state = StateOpen
		p.openedAt = p.now()
		return
	}

	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = StateOpen
		p.openedAt = p.now()
	}
}

// isClientSide is true for answers that prove the provider is up: a malformed payload or a
// 4xx other than 429.
func isClientSide(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if fe.Kind == aggregate.KindPayload {
		return true
	}
	return fe.Kind == aggregate.KindStatus && fe.Status >= 400 && fe.Status < 500 && fe.Status != 429
}

func isTimeout(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == aggregate.KindTimeout
	}
	return false
}
