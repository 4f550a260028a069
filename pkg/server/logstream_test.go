package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

func TestLogHubRequiresTaskID(t *testing.T) {
	hub := NewLogHub(store.NewMemoryLogStorage())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without task_id, got %d", resp.StatusCode)
	}
}

func TestLogHubStreamsAppendedLines(t *testing.T) {
	logs := store.NewMemoryLogStorage()
	hub := NewLogHub(logs)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?task_id=t1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := logs.Append(context.Background(), "t1", &model.LogLine{Level: "info", Message: "hello"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var lines []*model.LogLine
	if err := conn.ReadJSON(&lines); err != nil {
		t.Fatalf("expected the appended line to be pushed over the socket: %v", err)
	}
	if len(lines) != 1 || lines[0].Message != "hello" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}
