package middleware

import (
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// DefaultChain builds the fixed, process-wide middleware chain every
// scraper's requests pass through, in BeforeRequest order. Rate limiter
// state and the robots.txt cache are shared across scrapers so two
// scrapers hitting the same host share one budget.
func DefaultChain() []scrapectx.Middleware {
	return []scrapectx.Middleware{
		NewRequestLog(),
		NewUserAgent(),
		NewRobots(),
		NewRateLimit(),
		NewProxy(),
	}
}

