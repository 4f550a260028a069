// Package scrapectx is the facade a handler sees: parameter access plus
// HTTP verbs that run through the scraper's middleware chain, per
// spec.md §5.
package scrapectx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
)

// Context is passed to every handler invocation. It carries the task's
// decoded params, the resolved middleware chain for this scraper, and
// an http.Client that the chain's middlewares may point at a proxy per
// call (via Request.Proxy); no other client setting is changed per call.
type Context struct {
	ctx       context.Context
	Params    json.RawMessage
	ScraperID string
	TaskID    string

	chain      []Middleware
	overrides  map[string]json.RawMessage
	httpClient *http.Client
}

func New(ctx context.Context, params json.RawMessage, scraperID, taskID string, chain []Middleware, overrides map[string]json.RawMessage) *Context {
	return &Context{
		ctx:        ctx,
		Params:     params,
		ScraperID:  scraperID,
		TaskID:     taskID,
		chain:      chain,
		overrides:  overrides,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Context returns the task's cancellation context, cancelled on kill or
// timeout.
func (c *Context) Context() context.Context { return c.ctx }

// DecodeParams unmarshals the scraper's params into v.
func (c *Context) DecodeParams(v interface{}) error {
	if len(c.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Params, v); err != nil {
		return model.NewError(model.KindValidationError, "decode params", err)
	}
	return nil
}

func (c *Context) Get(url string) (*Response, error)     { return c.Do("GET", url, nil) }
func (c *Context) Head(url string) (*Response, error)    { return c.Do("HEAD", url, nil) }
func (c *Context) Options(url string) (*Response, error) { return c.Do("OPTIONS", url, nil) }
func (c *Context) Post(url string, body []byte) (*Response, error) {
	return c.Do("POST", url, body)
}
func (c *Context) Put(url string, body []byte) (*Response, error) {
	return c.Do("PUT", url, body)
}
func (c *Context) Patch(url string, body []byte) (*Response, error) {
	return c.Do("PATCH", url, body)
}
func (c *Context) Delete(url string, body []byte) (*Response, error) {
	return c.Do("DELETE", url, body)
}

// Do runs the full before_request -> transport -> after_response chain
// for a single HTTP call.
func (c *Context) Do(method, url string, body []byte) (*Response, error) {
	req := newRequest(method, url)
	req.Body = body

	for _, mw := range c.chain {
		var err error
		req, err = mw.BeforeRequest(c.ctx, req, c.overrides[mw.Name()])
		observability.MiddlewareInvocationsTotal.WithLabelValues(mw.Name(), "before_request").Inc()
		if err != nil {
			return nil, wrapMiddlewareErr(mw.Name(), err)
		}
		if req == nil {
			return nil, model.NewError(model.KindMiddlewareViolation, mw.Name()+": BeforeRequest returned a nil request", nil)
		}
	}

	httpReq, err := http.NewRequestWithContext(c.ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, model.NewError(model.KindHandlerError, "build http request", err)
	}
	httpReq.Header = req.Header

	client := c.httpClient
	if req.Proxy != "" {
		proxyClient, err := clientWithProxy(req.Proxy, c.httpClient.Timeout)
		if err != nil {
			return nil, model.NewError(model.KindMiddlewareViolation, "invalid proxy url", err)
		}
		client = proxyClient
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		if c.ctx.Err() != nil {
			return nil, model.Cancelled
		}
		return nil, model.NewError(model.KindHandlerError, "http request failed", err)
	}
	defer httpResp.Body.Close()
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, model.NewError(model.KindHandlerError, "read response body", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Request:    req,
	}

	for i := len(c.chain) - 1; i >= 0; i-- {
		mw := c.chain[i]
		resp, err = mw.AfterResponse(c.ctx, resp, c.overrides[mw.Name()])
		observability.MiddlewareInvocationsTotal.WithLabelValues(mw.Name(), "after_response").Inc()
		if err != nil {
			return nil, wrapMiddlewareErr(mw.Name(), err)
		}
		if resp == nil {
			return nil, model.NewError(model.KindMiddlewareViolation, mw.Name()+": AfterResponse returned a nil response", nil)
		}
	}

	return resp, nil
}

func clientWithProxy(proxyURL string, timeout time.Duration) (*http.Client, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(u)},
	}, nil
}

func wrapMiddlewareErr(name string, err error) error {
	if model.KindOf(err) != "" {
		return err
	}
	return model.NewError(model.KindMiddlewareViolation, name+": "+err.Error(), err)
}
