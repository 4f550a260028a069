package scrapectx

import "net/http"

// Request is the scraper-facing representation of an outbound HTTP
// call, passed through the middleware chain before it is sent.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Proxy, if set by a middleware, routes this single request through
	// the given proxy URL instead of the context's default transport.
	Proxy string
}

func newRequest(method, url string) *Request {
	return &Request{Method: method, URL: url, Header: make(http.Header)}
}

// Response is the scraper-facing representation of an inbound HTTP
// result, passed through the middleware chain after it is received.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    *Request
}
