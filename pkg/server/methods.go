package server

import (
	"context"
	"encoding/json"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/handler"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/queue"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

// Deps are the components the JSON-RPC surface reads and writes. All
// methods are thin adapters: the actual invariants (read-only storage,
// not-found semantics, priority ordering) live in pkg/store and
// pkg/queue, not here.
type Deps struct {
	Scrapers store.ScraperStorage
	Queue    *queue.Queue
	Logs     store.LogStorage
	Handlers *handler.Registry
}

// NewWithDeps builds a Server with every method in spec.md §6 wired to deps.
func NewWithDeps(deps Deps) *Server {
	s := New()

	s.register("get_scrapers", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return deps.Scrapers.List(ctx)
	})

	s.register("get_scraper", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			ID string `json:"id"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		return deps.Scrapers.Get(ctx, params.ID)
	})

	s.register("create_scraper", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var sc model.Scraper
		if err := decodeParams(raw, &sc); err != nil {
			return nil, err
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if err := deps.Scrapers.Create(ctx, &sc); err != nil {
			return nil, err
		}
		return &sc, nil
	})

	s.register("update_scraper", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var sc model.Scraper
		if err := decodeParams(raw, &sc); err != nil {
			return nil, err
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if err := deps.Scrapers.Update(ctx, &sc); err != nil {
			return nil, err
		}
		return &sc, nil
	})

	s.register("delete_scraper", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			ID string `json:"id"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		if err := deps.Scrapers.Delete(ctx, params.ID); err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": true}, nil
	})

	s.register("search_scrapers", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var filter model.ScraperFilter
		if err := decodeParams(raw, &filter); err != nil {
			return nil, err
		}
		return deps.Scrapers.Search(ctx, filter)
	})

	s.register("is_read_only", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return map[string]bool{"read_only": deps.Scrapers.IsReadOnly()}, nil
	})

	s.register("get_scraper_handlers", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return deps.Handlers.Names(), nil
	})

	s.register("get_schedules", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		return []model.Schedule{
			model.ScheduleInactive,
			model.ScheduleEverySecond,
			model.ScheduleEveryMinute,
			model.ScheduleEveryHour,
			model.ScheduleEveryDay,
			model.ScheduleEveryWeek,
			model.ScheduleCrontab,
		}, nil
	})

	s.register("get_priorities", func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
		out := make([]string, len(model.Priorities))
		for i, p := range model.Priorities {
			out[i] = p.String()
		}
		return out, nil
	})

	s.register("enqueue_scraper", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			ScraperID string `json:"scraper_id"`
			Priority  string `json:"priority"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		sc, err := deps.Scrapers.Get(ctx, params.ScraperID)
		if err != nil {
			return nil, err
		}
		priority := sc.SchedulePriority
		if params.Priority != "" {
			priority, err = model.ParsePriority(params.Priority)
			if err != nil {
				return nil, err
			}
		}
		return deps.Queue.Enqueue(ctx, sc.ID, sc.HandlerName, sc.Config, priority)
	})

	s.register("get_task_instances", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			TaskName string `json:"task_name"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		return deps.Queue.ListByScraper(ctx, params.TaskName)
	})

	s.register("get_task_instance", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			TaskID string `json:"task_id"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		return deps.Queue.Get(ctx, params.TaskID)
	})

	s.register("get_task_logs", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			TaskID        string `json:"task_id"`
			LastLogLineID int64  `json:"last_log_line_id"`
			MaxLines      int    `json:"max_lines"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		maxLines := params.MaxLines
		if maxLines <= 0 {
			maxLines = 1000
		}
		return deps.Logs.Read(ctx, params.TaskID, params.LastLogLineID, maxLines)
	})

	s.register("run_ephemeral", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var params struct {
			Task struct {
				HandlerName string              `json:"handler_name"`
				Config      model.ScraperConfig `json:"config"`
			} `json:"task"`
			Priority string `json:"priority"`
		}
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		if params.Task.HandlerName == "" {
			return nil, model.NewError(model.KindValidationError, "task.handler_name is required", nil)
		}
		if _, err := deps.Handlers.Resolve(params.Task.HandlerName); err != nil {
			return nil, err
		}
		priority := model.PriorityNormal
		if params.Priority != "" {
			var err error
			priority, err = model.ParsePriority(params.Priority)
			if err != nil {
				return nil, err
			}
		}
		return deps.Queue.Enqueue(ctx, model.EphemeralScraperID, params.Task.HandlerName, params.Task.Config, priority)
	})

	return s
}
