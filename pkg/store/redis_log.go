package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
)

// appendLogScript assigns the next line id and pushes the line in one
// round trip, so concurrent writers from different worker processes never
// collide on an id.
var appendLogScript = redis.NewScript(`
local nextKey = KEYS[1]
local listKey = KEYS[2]
local payload = ARGV[1]
local id = redis.call("INCR", nextKey)
local line = cjson.decode(payload)
line["id"] = id
redis.call("RPUSH", listKey, cjson.encode(line))
return id
`)

// RedisLogStorage implements LogStorage as a Redis list of JSON log
// lines per task, with a companion counter for monotonic ids.
type RedisLogStorage struct {
	rdb *redis.Client
}

func NewRedisLogStorage(rdb *redis.Client) *RedisLogStorage {
	return &RedisLogStorage{rdb: rdb}
}

func (s *RedisLogStorage) Append(ctx context.Context, taskID string, line *model.LogLine) error {
	start := time.Now()
	defer func() {
		observability.RedisOpLatency.WithLabelValues("log_append").Observe(time.Since(start).Seconds())
	}()

	line.TaskID = taskID
	payload, err := json.Marshal(line)
	if err != nil {
		return model.NewError(model.KindValidationError, "encode log line", err)
	}
	id, err := appendLogScript.Run(ctx, s.rdb, []string{logsNextIDKey(taskID), logsKey(taskID)}, payload).Int64()
	if err != nil {
		return model.NewError(model.KindStorageUnavailable, "append log for task "+taskID, err)
	}
	line.ID = id
	return nil
}

func (s *RedisLogStorage) Read(ctx context.Context, taskID string, afterID int64, maxLines int) ([]*model.LogLine, error) {
	start := time.Now()
	defer func() {
		observability.RedisOpLatency.WithLabelValues("log_read").Observe(time.Since(start).Seconds())
	}()

	raw, err := s.rdb.LRange(ctx, logsKey(taskID), 0, -1).Result()
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "read log for task "+taskID, err)
	}
	out := make([]*model.LogLine, 0, maxLines)
	for _, item := range raw {
		var l model.LogLine
		if err := json.Unmarshal([]byte(item), &l); err != nil {
			continue
		}
		if l.ID <= afterID {
			continue
		}
		out = append(out, &l)
		if len(out) >= maxLines {
			break
		}
	}
	return out, nil
}
