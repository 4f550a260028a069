package middleware

import (
	"context"
	"encoding/json"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// RequestLog logs every outbound request and its response status at
// debug level (no latency is recorded), useful for diagnosing a scraper without
// needing the handler itself to log anything.
type RequestLog struct{}

func NewRequestLog() *RequestLog { return &RequestLog{} }

func (m *RequestLog) Name() string { return "request_log" }

func (m *RequestLog) BeforeRequest(ctx context.Context, req *scrapectx.Request, override json.RawMessage) (*scrapectx.Request, error) {
	log.Debug().Str("method", req.Method).Str("url", req.URL).Msg("request")
	return req, nil
}

func (m *RequestLog) AfterResponse(ctx context.Context, resp *scrapectx.Response, override json.RawMessage) (*scrapectx.Response, error) {
	log.Debug().Int("status", resp.StatusCode).Str("url", resp.Request.URL).Msg("response")
	return resp, nil
}
