package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

const maxLogStreamConnections = 200

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// LogHub serves live task-log tails over websocket, supplementing
// get_task_logs' poll-based interface with a push-based one. Each
// connection tails one task id, polling storage on its own ticker
// since LogStorage has no append notification to subscribe to.
type LogHub struct {
	logs store.LogStorage

	mu    sync.Mutex
	count int
}

func NewLogHub(logs store.LogStorage) *LogHub {
	return &LogHub{logs: logs}
}

// ServeHTTP upgrades the connection and tails ?task_id= until the
// client disconnects or the request context ends.
func (h *LogHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		http.Error(w, "task_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("log stream upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	if h.count >= maxLogStreamConnections {
		h.mu.Unlock()
		log.Warn().Msg("log stream connection rejected: max connections reached")
		return
	}
	h.count++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.count--
		h.mu.Unlock()
	}()

	ctx := r.Context()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastID int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lines, err := h.logs.Read(ctx, taskID, lastID, 500)
			if err != nil {
				log.Warn().Err(err).Str("task_id", taskID).Msg("log stream read failed")
				continue
			}
			if len(lines) == 0 {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(lines); err != nil {
				return
			}
			lastID = lines[len(lines)-1].ID
		}
	}
}
