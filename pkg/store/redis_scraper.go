package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
)

// RedisScraperStorage implements ScraperStorage against a shared Redis,
// keeping scrapers:{id} blobs and a scraper_ids set per spec.md §6.
type RedisScraperStorage struct {
	rdb      *redis.Client
	readOnly bool
}

func NewRedisScraperStorage(rdb *redis.Client) *RedisScraperStorage {
	return &RedisScraperStorage{rdb: rdb}
}

// NewReadOnlyRedisScraperStorage wraps the same Redis connection in
// read-only mode, e.g. for a replica process that only displays scrapers.
func NewReadOnlyRedisScraperStorage(rdb *redis.Client) *RedisScraperStorage {
	return &RedisScraperStorage{rdb: rdb, readOnly: true}
}

func (s *RedisScraperStorage) IsReadOnly() bool { return s.readOnly }

func (s *RedisScraperStorage) observe(op string, start time.Time) {
	observability.RedisOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *RedisScraperStorage) List(ctx context.Context) ([]*model.Scraper, error) {
	start := time.Now()
	defer s.observe("scraper_list", start)

	ids, err := s.rdb.SMembers(ctx, scraperIDsKey()).Result()
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "list scraper ids", err)
	}
	out := make([]*model.Scraper, 0, len(ids))
	for _, id := range ids {
		sc, err := s.MaybeGet(ctx, id)
		if err != nil {
			return nil, err
		}
		if sc != nil {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *RedisScraperStorage) Get(ctx context.Context, id string) (*model.Scraper, error) {
	sc, err := s.MaybeGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, model.NewError(model.KindNotFound, "scraper "+id+" not found", nil)
	}
	return sc, nil
}

func (s *RedisScraperStorage) MaybeGet(ctx context.Context, id string) (*model.Scraper, error) {
	start := time.Now()
	defer s.observe("scraper_get", start)

	data, err := s.rdb.Get(ctx, scraperKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "get scraper "+id, err)
	}
	var sc model.Scraper
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "decode scraper "+id, err)
	}
	return &sc, nil
}

func (s *RedisScraperStorage) Search(ctx context.Context, filter model.ScraperFilter) ([]*model.Scraper, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Scraper, 0, len(all))
	for _, sc := range all {
		if filter.NamePrefix != "" && !strings.HasPrefix(sc.Name, filter.NamePrefix) {
			continue
		}
		if filter.HandlerName != "" && sc.HandlerName != filter.HandlerName {
			continue
		}
		if filter.Schedule != "" && sc.ScheduleKind != filter.Schedule {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *RedisScraperStorage) Create(ctx context.Context, sc *model.Scraper) error {
	if s.readOnly {
		return model.ReadOnly
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	return s.put(ctx, sc, true)
}

func (s *RedisScraperStorage) Update(ctx context.Context, sc *model.Scraper) error {
	if s.readOnly {
		return model.ReadOnly
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	existing, err := s.MaybeGet(ctx, sc.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return model.NewError(model.KindNotFound, "scraper "+sc.ID+" not found", nil)
	}
	return s.put(ctx, sc, false)
}

func (s *RedisScraperStorage) put(ctx context.Context, sc *model.Scraper, isNew bool) error {
	start := time.Now()
	defer s.observe("scraper_put", start)

	data, err := json.Marshal(sc)
	if err != nil {
		return model.NewError(model.KindValidationError, "encode scraper", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, scraperKey(sc.ID), data, 0)
	if isNew {
		pipe.SAdd(ctx, scraperIDsKey(), sc.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return model.NewError(model.KindStorageUnavailable, "store scraper "+sc.ID, err)
	}
	return nil
}

func (s *RedisScraperStorage) Delete(ctx context.Context, id string) error {
	if s.readOnly {
		return model.ReadOnly
	}
	start := time.Now()
	defer s.observe("scraper_delete", start)

	existing, err := s.MaybeGet(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return model.NewError(model.KindNotFound, "scraper "+id+" not found", nil)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, scraperKey(id))
	pipe.SRem(ctx, scraperIDsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.NewError(model.KindStorageUnavailable, "delete scraper "+id, err)
	}
	return nil
}
