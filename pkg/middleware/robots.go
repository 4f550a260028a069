package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// RobotsViolationStrategy controls what happens when a URL is
// disallowed by robots.txt.
type RobotsViolationStrategy string

const (
	RobotsLog   RobotsViolationStrategy = "log"
	RobotsThrow RobotsViolationStrategy = "throw"
)

// RobotsConfig is the per-scraper override shape for Robots.
type RobotsConfig struct {
	UserAgent string                   `json:"user_agent"`
	Strategy  RobotsViolationStrategy  `json:"strategy"`
}

func defaultRobotsConfig() RobotsConfig {
	return RobotsConfig{UserAgent: "*", Strategy: RobotsLog}
}

type robotsEntry struct {
	disallow  []string
	fetchedAt time.Time
}

// Robots fetches and caches each host's robots.txt, then checks every
// request path against it. Fetch failures (timeout, 5xx) fail open:
// the request proceeds as if no robots.txt existed, since a scraper
// should not wedge on a transient outage of an unrelated endpoint.
type Robots struct {
	client *http.Client
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]robotsEntry
}

func NewRobots() *Robots {
	return &Robots{
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    time.Hour,
		cache:  make(map[string]robotsEntry),
	}
}

func (m *Robots) Name() string { return "robots" }

func (m *Robots) BeforeRequest(ctx context.Context, req *scrapectx.Request, override json.RawMessage) (*scrapectx.Request, error) {
	cfg := defaultRobotsConfig()
	if err := mergeOverride(override, &cfg); err != nil {
		return nil, err
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, model.NewError(model.KindValidationError, "parse request url", err)
	}

	entry := m.entryFor(ctx, u)
	if isDisallowed(entry.disallow, u.Path) {
		if cfg.Strategy == RobotsThrow {
			return nil, model.NewError(model.KindMiddlewareViolation, "robots.txt disallows "+u.Path, nil)
		}
		log.Warn().Str("url", req.URL).Msg("robots.txt disallows url, proceeding (log strategy)")
	}
	return req, nil
}

func (m *Robots) AfterResponse(ctx context.Context, resp *scrapectx.Response, override json.RawMessage) (*scrapectx.Response, error) {
	return resp, nil
}

func (m *Robots) entryFor(ctx context.Context, u *url.URL) robotsEntry {
	host := u.Scheme + "://" + u.Host
	m.mu.Lock()
	entry, ok := m.cache[host]
	m.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < m.ttl {
		return entry
	}

	entry = robotsEntry{fetchedAt: time.Now()}
	req, err := http.NewRequestWithContext(ctx, "GET", host+"/robots.txt", nil)
	if err == nil {
		if resp, err := m.client.Do(req); err == nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				body, err := io.ReadAll(resp.Body)
				if err == nil {
					entry.disallow = parseDisallow(string(body))
				}
			}
		}
	}

	m.mu.Lock()
	m.cache[host] = entry
	m.mu.Unlock()
	return entry
}

// parseDisallow extracts Disallow rules from every User-agent: *
// block, which covers the vast majority of robots.txt files scrapers
// encounter without pulling in a full robots.txt grammar.
func parseDisallow(body string) []string {
	var disallow []string
	inWildcardBlock := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "user-agent:"):
			agent := strings.TrimSpace(line[len("user-agent:"):])
			inWildcardBlock = agent == "*"
		case inWildcardBlock && strings.HasPrefix(lower, "disallow:"):
			path := strings.TrimSpace(line[len("disallow:"):])
			if path != "" {
				disallow = append(disallow, path)
			}
		}
	}
	return disallow
}

func isDisallowed(disallow []string, path string) bool {
	for _, prefix := range disallow {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
