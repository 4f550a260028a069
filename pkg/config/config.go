// Package config assembles process configuration from environment
// variables, with production defaults matching the teacher's pattern
// of small env-driven overrides rather than a config file format.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scheduler"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/workerpool"
)

// StorageBackend selects which store.* implementations back the
// server: in-memory for single-process/dev use, Redis for a fleet.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
)

// Config is the process's full runtime configuration.
type Config struct {
	Addr    string
	Backend StorageBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LeaseTTL time.Duration

	Scheduler  scheduler.Config
	WorkerPool workerpool.Config
}

func FromEnv() Config {
	cfg := Config{
		Addr:       envStr("SNEAKPEEK_ADDR", ":8080"),
		Backend:    StorageBackend(envStr("SNEAKPEEK_STORAGE", string(StorageMemory))),
		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		LeaseTTL:   envDuration("SNEAKPEEK_LEASE_TTL", 60*time.Second),
		Scheduler:  scheduler.DefaultConfig(),
		WorkerPool: workerpool.DefaultConfig(),
	}

	if n := envInt("SNEAKPEEK_WORKER_POOL_SIZE", 0); n > 0 {
		cfg.WorkerPool.Size = n
	}
	if n := envInt("SNEAKPEEK_PENDING_HIGH_WATER_MARK", 0); n > 0 {
		cfg.Scheduler.PendingHighWaterMark = n
	}
	cfg.Scheduler.MaxConcurrency = cfg.WorkerPool.Size

	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
