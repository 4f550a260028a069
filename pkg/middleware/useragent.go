package middleware

import (
	"context"
	"encoding/json"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// UserAgentConfig is the per-scraper override shape for UserAgent.
type UserAgentConfig struct {
	UserAgent string `json:"user_agent"`
}

func defaultUserAgentConfig() UserAgentConfig {
	return UserAgentConfig{UserAgent: "sneakpeek/1.0"}
}

// UserAgent stamps every outbound request with a configurable
// User-Agent header unless the handler already set one.
type UserAgent struct{}

func NewUserAgent() *UserAgent { return &UserAgent{} }

func (m *UserAgent) Name() string { return "user_agent" }

func (m *UserAgent) BeforeRequest(ctx context.Context, req *scrapectx.Request, override json.RawMessage) (*scrapectx.Request, error) {
	cfg := defaultUserAgentConfig()
	if err := mergeOverride(override, &cfg); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	return req, nil
}

func (m *UserAgent) AfterResponse(ctx context.Context, resp *scrapectx.Response, override json.RawMessage) (*scrapectx.Response, error) {
	return resp, nil
}
