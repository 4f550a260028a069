package middleware

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// ProxyConfig is the per-scraper override shape for Proxy. Proxies is a
// pool; one is chosen per request so a scraper can spread load across
// several egress points.
type ProxyConfig struct {
	Proxies []string `json:"proxies"`
}

func defaultProxyConfig() ProxyConfig {
	return ProxyConfig{}
}

// Proxy routes requests through one of a configured pool of upstream
// proxies, picked uniformly at random per request. With no proxies
// configured it is a no-op.
type Proxy struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewProxy() *Proxy {
	return &Proxy{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *Proxy) Name() string { return "proxy" }

func (m *Proxy) BeforeRequest(ctx context.Context, req *scrapectx.Request, override json.RawMessage) (*scrapectx.Request, error) {
	cfg := defaultProxyConfig()
	if err := mergeOverride(override, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Proxies) == 0 {
		return req, nil
	}
	m.mu.Lock()
	idx := m.rand.Intn(len(cfg.Proxies))
	m.mu.Unlock()
	req.Proxy = cfg.Proxies[idx]
	return req, nil
}

func (m *Proxy) AfterResponse(ctx context.Context, resp *scrapectx.Response, override json.RawMessage) (*scrapectx.Response, error) {
	return resp, nil
}
