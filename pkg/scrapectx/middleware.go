package scrapectx

import (
	"context"
	"encoding/json"
)

// Middleware hooks into every outbound request and inbound response a
// scraper makes. BeforeRequest hooks run in registration order;
// AfterResponse hooks run in reverse, so a middleware sees its own
// BeforeRequest undone last, like a stack.
//
// override is this scraper's config.middleware_overrides entry for
// Name(), or nil if absent; each middleware merges it over its own
// defaults, since the chain has no notion of any middleware's schema.
type Middleware interface {
	Name() string
	BeforeRequest(ctx context.Context, req *Request, override json.RawMessage) (*Request, error)
	AfterResponse(ctx context.Context, resp *Response, override json.RawMessage) (*Response, error)
}
