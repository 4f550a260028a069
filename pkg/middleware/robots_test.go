package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRobotsDisallowsMatchingPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	m := NewRobots()
	req := newReq(srv.URL + "/private/page")
	// Default strategy is "log": the request still proceeds, just noisily.
	if _, err := m.BeforeRequest(context.Background(), req, nil); err != nil {
		t.Fatalf("default log strategy should not block, got %v", err)
	}

	cfgThrow := RobotsConfig{UserAgent: "*", Strategy: RobotsThrow}
	override, _ := json.Marshal(cfgThrow)
	if _, err := m.BeforeRequest(context.Background(), req, override); err == nil {
		t.Fatal("expected explicit throw strategy to reject disallowed path")
	}
}

func TestRobotsAllowsUnlistedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	m := NewRobots()
	req := newReq(srv.URL + "/public/page")
	if _, err := m.BeforeRequest(context.Background(), req, nil); err != nil {
		t.Fatalf("unlisted path should be allowed, got %v", err)
	}
}

// TestRobotsFailsOpenOn5xx is spec.md §8: a robots.txt fetch that
// errors (5xx, timeout) must not block the request.
func TestRobotsFailsOpenOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfgThrow := RobotsConfig{UserAgent: "*", Strategy: RobotsThrow}
	override, _ := json.Marshal(cfgThrow)

	m := NewRobots()
	req := newReq(srv.URL + "/anything")
	if _, err := m.BeforeRequest(context.Background(), req, override); err != nil {
		t.Fatalf("expected fail-open on 5xx robots.txt, got %v", err)
	}
}
