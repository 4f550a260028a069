// Command server runs a sneakpeek-go process: the JSON-RPC API, the
// worker pool, and (when it holds the scheduler lease) the scraper
// trigger scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/config"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/handler"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/lease"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/logger"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/middleware"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/queue"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scheduler"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/server"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/workerpool"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logger.Component("main")

const defaultShutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		scraperStore store.ScraperStorage
		queueStore   store.QueueStorage
		leaseStore   store.LeaseStorage
		logStore     store.LogStorage
	)

	switch cfg.Backend {
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		scraperStore = store.NewRedisScraperStorage(rdb)
		queueStore = store.NewRedisQueueStorage(rdb)
		leaseStore = store.NewRedisLeaseStorage(rdb)
		logStore = store.NewRedisLogStorage(rdb)
	default:
		log.Info().Msg("using in-memory storage; single process only, not safe for a fleet")
		scraperStore = store.NewMemoryScraperStorage()
		queueStore = store.NewMemoryQueueStorage()
		leaseStore = store.NewMemoryLeaseStorage()
		logStore = store.NewMemoryLogStorage()
	}

	q := queue.New(queueStore)

	registry := handler.NewRegistry()
	registry.Register(handler.HTMLLinksHandlerName, handler.NewHTMLLinksHandler())
	registry.Register(handler.DynamicHandlerName, handler.NewDynamicHandler())
	registry.Freeze()

	chain := middleware.DefaultChain()
	resolveMw := func(sc model.ScraperConfig) ([]scrapectx.Middleware, map[string]json.RawMessage) {
		return chain, sc.MiddlewareOverrides
	}

	pool := workerpool.New(q, logStore, registry, resolveMw, cfg.WorkerPool)
	go pool.Run(ctx)

	sched := scheduler.New(scraperStore, q, cfg.Scheduler)
	sched.SetActiveTaskCountFunc(pool.ActiveCount)

	electionMgr := lease.New(leaseStore, cfg.LeaseTTL)
	electionMgr.SetCallbacks(
		func(activeCtx context.Context) {
			log.Info().Msg("elected scheduler leader, starting trigger evaluation")
			sched.Run(activeCtx)
		},
		func() {
			log.Info().Msg("lost scheduler leadership")
		},
	)
	go electionMgr.Run(ctx)

	rpcServer := server.NewWithDeps(server.Deps{
		Scrapers: scraperStore,
		Queue:    q,
		Logs:     logStore,
		Handlers: registry,
	})
	logHub := server.NewLogHub(logStore)

	mux := http.NewServeMux()
	mux.Handle("/rpc", rpcServer)
	mux.Handle("/ws/logs", logHub)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	fmt.Println("==================================================")
	fmt.Println("sneakpeek-go")
	fmt.Println("==================================================")
	fmt.Printf("Listen address:    %s\n", cfg.Addr)
	fmt.Printf("Storage backend:   %s\n", cfg.Backend)
	fmt.Printf("Worker pool size:  %d\n", cfg.WorkerPool.Size)
	fmt.Printf("Pending HWM:       %d\n", cfg.Scheduler.PendingHighWaterMark)
	fmt.Println("==================================================")

	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Msg("sneakpeek-go listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
