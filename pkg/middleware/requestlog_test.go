package middleware

import (
	"context"
	"testing"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

func TestRequestLogPassesThroughUnmodified(t *testing.T) {
	m := NewRequestLog()
	req := newReq("https://example.com/")
	got, err := m.BeforeRequest(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != req {
		t.Fatal("expected request logger to pass the request through unchanged")
	}

	resp := &scrapectx.Response{StatusCode: 200, Request: req}
	gotResp, err := m.AfterResponse(context.Background(), resp, nil)
	if err != nil {
		t.Fatal(err)
	}
	if gotResp != resp {
		t.Fatal("expected request logger to pass the response through unchanged")
	}
}
