// Package middleware holds the concrete scrapectx.Middleware
// implementations: rate limiting, robots.txt enforcement, user-agent
// injection, proxying, request logging, and HTML parsing helpers.
package middleware

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/logger"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
	"golang.org/x/time/rate"
)

// RateLimitStrategy controls what happens when a request would exceed
// the per-host budget.
type RateLimitStrategy string

const (
	RateLimitWait  RateLimitStrategy = "wait"
	RateLimitThrow RateLimitStrategy = "throw"
)

// RateLimitConfig is the per-scraper override shape for RateLimit.
type RateLimitConfig struct {
	RequestsPerSecond float64           `json:"requests_per_second"`
	Burst             int               `json:"burst"`
	Strategy          RateLimitStrategy `json:"strategy"`
}

func defaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Strategy: RateLimitWait}
}

// RateLimit is a leaky-bucket limiter keyed by request host. A WAIT
// scraper blocks until a token frees up; a THROW scraper fails the
// request immediately with KindRateLimited.
type RateLimit struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var log = logger.Component("middleware")

func NewRateLimit() *RateLimit {
	return &RateLimit{limiters: make(map[string]*rate.Limiter)}
}

func (m *RateLimit) Name() string { return "rate_limit" }

func (m *RateLimit) limiterFor(host string, cfg RateLimitConfig) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		m.limiters[host] = l
	}
	return l
}

func (m *RateLimit) BeforeRequest(ctx context.Context, req *scrapectx.Request, override json.RawMessage) (*scrapectx.Request, error) {
	cfg := defaultRateLimitConfig()
	if err := mergeOverride(override, &cfg); err != nil {
		return nil, err
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, model.NewError(model.KindValidationError, "parse request url", err)
	}
	limiter := m.limiterFor(u.Host, cfg)

	switch cfg.Strategy {
	case RateLimitThrow:
		if !limiter.Allow() {
			return nil, model.RateLimited
		}
	default:
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, model.Cancelled
			}
			// Wait also fails up front, before ctx is done, when the next
			// token would only free up after ctx's deadline.
			if _, ok := ctx.Deadline(); ok && limiter.Burst() >= 1 {
				return nil, model.Cancelled
			}
			return nil, model.NewError(model.KindRateLimited, "rate limit wait failed", err)
		}
	}
	return req, nil
}

func (m *RateLimit) AfterResponse(ctx context.Context, resp *scrapectx.Response, override json.RawMessage) (*scrapectx.Response, error) {
	return resp, nil
}
