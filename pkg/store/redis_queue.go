package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
)

// dequeueScript pops the oldest task id from the first non-empty priority
// list (KEYS given in priority order), stamps it STARTED, and returns the
// updated task blob. The pop and the state transition happen inside one
// script so a crash between them is impossible.
var dequeueScript = redis.NewScript(`
local taskKeyPrefix = ARGV[1]
local nowStr = ARGV[2]
local id = nil
for i = 1, #KEYS do
	id = redis.call("LPOP", KEYS[i])
	if id then break end
end
if not id then
	return nil
end
local blob = redis.call("GET", taskKeyPrefix .. id)
if not blob then
	return nil
end
local task = cjson.decode(blob)
task["status"] = "STARTED"
task["started_at"] = nowStr
task["last_active_at"] = nowStr
local updated = cjson.encode(task)
redis.call("SET", taskKeyPrefix .. id, updated)
return updated
`)

// RedisQueueStorage implements QueueStorage with one Redis list per
// priority holding task ids, plus a tasks:{id} blob and a
// tasks:by_scraper:{id} set for per-scraper lookups.
type RedisQueueStorage struct {
	rdb *redis.Client
}

func NewRedisQueueStorage(rdb *redis.Client) *RedisQueueStorage {
	return &RedisQueueStorage{rdb: rdb}
}

func (s *RedisQueueStorage) observe(op string, start time.Time) {
	observability.RedisOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *RedisQueueStorage) Enqueue(ctx context.Context, t *model.Task) error {
	start := time.Now()
	defer s.observe("queue_enqueue", start)

	data, err := json.Marshal(t)
	if err != nil {
		return model.NewError(model.KindValidationError, "encode task", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, taskKey(t.ID), data, 0)
	pipe.RPush(ctx, queueKey(t.Priority.String()), t.ID)
	if t.ScraperID != model.EphemeralScraperID {
		pipe.SAdd(ctx, byScraperKey(t.ScraperID), t.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return model.NewError(model.KindStorageUnavailable, "enqueue task "+t.ID, err)
	}
	return nil
}

func (s *RedisQueueStorage) Dequeue(ctx context.Context, priorities []model.Priority) (*model.Task, error) {
	start := time.Now()
	defer s.observe("queue_dequeue", start)

	keys := make([]string, len(priorities))
	for i, p := range priorities {
		keys[i] = queueKey(p.String())
	}
	res, err := dequeueScript.Run(ctx, s.rdb, keys, "tasks:", time.Now().UTC().Format(time.RFC3339Nano)).Result()
	if err == redis.Nil || res == nil {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "dequeue", err)
	}
	blob, ok := res.(string)
	if !ok {
		return nil, nil
	}
	var t model.Task
	if err := json.Unmarshal([]byte(blob), &t); err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "decode dequeued task", err)
	}
	return &t, nil
}

func (s *RedisQueueStorage) Update(ctx context.Context, t *model.Task) error {
	start := time.Now()
	defer s.observe("queue_update", start)

	data, err := json.Marshal(t)
	if err != nil {
		return model.NewError(model.KindValidationError, "encode task", err)
	}
	if err := s.rdb.Set(ctx, taskKey(t.ID), data, 0).Err(); err != nil {
		return model.NewError(model.KindStorageUnavailable, "update task "+t.ID, err)
	}
	return nil
}

func (s *RedisQueueStorage) Get(ctx context.Context, taskID string) (*model.Task, error) {
	start := time.Now()
	defer s.observe("queue_get", start)

	data, err := s.rdb.Get(ctx, taskKey(taskID)).Result()
	if err == redis.Nil {
		return nil, model.NewError(model.KindNotFound, "task "+taskID+" not found", nil)
	}
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "get task "+taskID, err)
	}
	var t model.Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "decode task "+taskID, err)
	}
	return &t, nil
}

func (s *RedisQueueStorage) ListByScraper(ctx context.Context, scraperID string) ([]*model.Task, error) {
	start := time.Now()
	defer s.observe("queue_list_by_scraper", start)

	ids, err := s.rdb.SMembers(ctx, byScraperKey(scraperID)).Result()
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "list tasks for scraper "+scraperID, err)
	}
	out := make([]*model.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if err != nil {
			if model.KindOf(err) == model.KindNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisQueueStorage) DeleteOld(ctx context.Context, retentionPerScraper int) (int, error) {
	start := time.Now()
	defer s.observe("queue_delete_old", start)

	scraperIDs, err := s.rdb.Keys(ctx, "tasks:by_scraper:*").Result()
	if err != nil {
		return 0, model.NewError(model.KindStorageUnavailable, "scan scraper task sets", err)
	}
	deleted := 0
	for _, setKey := range scraperIDs {
		ids, err := s.rdb.SMembers(ctx, setKey).Result()
		if err != nil {
			return deleted, model.NewError(model.KindStorageUnavailable, "list tasks in "+setKey, err)
		}
		terminal := make([]*model.Task, 0, len(ids))
		for _, id := range ids {
			t, err := s.Get(ctx, id)
			if err != nil {
				continue
			}
			if t.Status.IsTerminal() {
				terminal = append(terminal, t)
			}
		}
		if len(terminal) <= retentionPerScraper {
			continue
		}
		sortTasksByCreatedAtAsc(terminal)
		toDrop := terminal[:len(terminal)-retentionPerScraper]
		for _, t := range toDrop {
			pipe := s.rdb.TxPipeline()
			pipe.Del(ctx, taskKey(t.ID))
			pipe.SRem(ctx, setKey, t.ID)
			pipe.Del(ctx, logsKey(t.ID))
			pipe.Del(ctx, logsNextIDKey(t.ID))
			if _, err := pipe.Exec(ctx); err != nil {
				return deleted, model.NewError(model.KindStorageUnavailable, "delete task "+t.ID, err)
			}
			deleted++
		}
	}
	return deleted, nil
}

func (s *RedisQueueStorage) PendingCount(ctx context.Context, p model.Priority) (int, error) {
	n, err := s.rdb.LLen(ctx, queueKey(p.String())).Result()
	if err != nil {
		return 0, model.NewError(model.KindStorageUnavailable, "pending count", err)
	}
	return int(n), nil
}

func (s *RedisQueueStorage) ListStale(ctx context.Context, cutoff time.Time) ([]*model.Task, error) {
	start := time.Now()
	defer s.observe("queue_list_stale", start)

	ids, err := s.rdb.Keys(ctx, "tasks:*").Result()
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "scan tasks", err)
	}
	out := make([]*model.Task, 0)
	for _, key := range ids {
		if strings.HasPrefix(key, "tasks:by_scraper:") {
			continue
		}
		data, err := s.rdb.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var t model.Task
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			continue
		}
		if t.Status == model.StatusStarted && t.LastActiveAt != nil && t.LastActiveAt.Before(cutoff) {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (s *RedisQueueStorage) HasPendingOrStarted(ctx context.Context, scraperID string) (bool, error) {
	tasks, err := s.ListByScraper(ctx, scraperID)
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if t.Status == model.StatusPending || t.Status == model.StatusStarted {
			return true, nil
		}
	}
	return false, nil
}

func sortTasksByCreatedAtAsc(tasks []*model.Task) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j].CreatedAt.Before(tasks[j-1].CreatedAt); j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}
