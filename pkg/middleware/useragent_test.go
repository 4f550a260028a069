package middleware

import (
	"context"
	"encoding/json"
	"testing"
)

func TestUserAgentSetsDefaultWhenAbsent(t *testing.T) {
	m := NewUserAgent()
	req := newReq("https://example.com/")
	if _, err := m.BeforeRequest(context.Background(), req, nil); err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("User-Agent"); got != "sneakpeek/1.0" {
		t.Fatalf("expected default user agent, got %q", got)
	}
}

func TestUserAgentRespectsOverride(t *testing.T) {
	m := NewUserAgent()
	req := newReq("https://example.com/")
	override, _ := json.Marshal(UserAgentConfig{UserAgent: "custom-bot/2.0"})
	if _, err := m.BeforeRequest(context.Background(), req, override); err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("User-Agent"); got != "custom-bot/2.0" {
		t.Fatalf("expected override user agent, got %q", got)
	}
}

func TestUserAgentDoesNotClobberHandlerSetHeader(t *testing.T) {
	m := NewUserAgent()
	req := newReq("https://example.com/")
	req.Header.Set("User-Agent", "handler-set/1.0")
	if _, err := m.BeforeRequest(context.Background(), req, nil); err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("User-Agent"); got != "handler-set/1.0" {
		t.Fatalf("expected handler-set header to survive, got %q", got)
	}
}
