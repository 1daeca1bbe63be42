// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matchmaking-workers/internal/common/camunda"
	"matchmaking-workers/internal/common/config"
	"matchmaking-workers/internal/common/database"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/observability"
	"matchmaking-workers/internal/ranking"
	"matchmaking-workers/internal/signals"
	"matchmaking-workers/internal/similarity"
	"matchmaking-workers/internal/store"
	"matchmaking-workers/pkg/weights"

	cs "matchmaking-workers/internal/workers/matching/calculate-signals"
	qc "matchmaking-workers/internal/workers/matching/query-candidates"
	rc "matchmaking-workers/internal/workers/matching/rank-candidates"
)

const corpusRefreshInterval = time.Hour

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.Tracing)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	} else {
		obs.WithTracing(tracing)
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry; the cache tier is optional ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	var cache *store.Cache
	if err != nil {
		zapLog.Warn("redis unavailable, running without profile cache", zap.Error(err))
	} else {
		defer redis.Close()
		cache = store.NewCache(redis.Client, store.CacheOptions{
			Name: "profiles",
			TTL:  config.GetDuration(cfg.Matching.ProfileCacheTTL),
		}, log)
		zapLog.Info("Redis connected successfully")
	}

	// --- Scoring core ---
	var weightsFile *weights.File
	if cfg.Matching.WeightsFile != "" {
		weightsFile, err = weights.LoadFile(cfg.Matching.WeightsFile)
		if err != nil {
			zapLog.Fatal("weights file invalid", zap.String("path", cfg.Matching.WeightsFile), zap.Error(err))
		}
		zapLog.Info("weights file loaded",
			zap.String("version", weightsFile.Version),
			zap.Strings("personas", weightsFile.Personas()),
		)
	}

	simCache, err := similarity.NewSimilarityCache(cfg.Matching.CacheMaxEntries)
	if err != nil {
		zapLog.Fatal("similarity cache init failed", zap.Error(err))
	}
	defer simCache.Close()

	engine := signals.NewEngine(
		signals.WithCache(simCache),
		signals.WithMinTextLength(cfg.Matching.MinTextLength),
		signals.WithTokenOverlap(cfg.Matching.TokenOverlap),
		signals.WithLogger(log),
	)
	ranker := ranking.NewRanker(engine,
		ranking.WithParallelism(cfg.Matching.Parallelism),
		ranking.WithJitter(ranking.JitterPolicy{
			Enabled:   cfg.Matching.Jitter.Enabled,
			Seed:      cfg.Matching.Jitter.Seed,
			Amplitude: cfg.Matching.Jitter.Amplitude,
		}),
		ranking.WithRankLogger(log),
	)

	profiles := store.NewProfileStore(pg.DB, cache, log)
	weightsStore := store.NewWeightsStore(pg.DB, cache, store.WeightsStoreOptions{
		File:           weightsFile,
		DefaultPersona: cfg.Matching.DefaultPersona,
	}, log)

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	refreshCorpus(refreshCtx, profiles, engine, zapLog)
	go func() {
		ticker := time.NewTicker(corpusRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				refreshCorpus(refreshCtx, profiles, engine, zapLog)
			}
		}
	}()

	// --- Register workers ---
	workers := camunda.NewWorkerSet(zapLog)
	client := zeebe.GetClient()

	if wcfg := config.GetWorkerConfig(cfg, cs.TaskType); wcfg.Enabled {
		handler := cs.NewHandler(cs.LoadConfig(wcfg), engine, profiles, weightsStore, obs, log)
		workers.Start(client, cs.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, rc.TaskType); wcfg.Enabled {
		handler := rc.NewHandler(rc.LoadConfig(wcfg, cfg.Matching), ranker, profiles, weightsStore, obs, log)
		workers.Start(client, rc.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, qc.TaskType); wcfg.Enabled {
		handler := qc.NewHandler(qc.LoadConfig(wcfg, cfg.Matching), esClient.Client, profiles, obs, log)
		workers.Start(client, qc.TaskType, wcfg, handler.Handle)
	}
	zapLog.Info("workers registered", zap.Int("count", workers.Len()))

	// --- Health & Metrics Server ---
	mux := http.DefaultServeMux
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		rctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		indexCheck := func(ctx context.Context) error {
			return esClient.IndexExists(ctx, cfg.Matching.CandidateIndex)
		}
		for name, ping := range map[string]func(context.Context) error{
			"postgres":       pg.Ping,
			"elasticsearch":  esClient.Ping,
			"candidateIndex": indexCheck,
			"zeebe":          zeebe.HealthCheck,
		} {
			if err := ping(rctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		checks["profileCache"] = cache.State().String()

		if status == http.StatusOK {
			writeStatus(w, status, "ready", checks)
		} else {
			writeStatus(w, status, "not ready", checks)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.App.HTTPPort)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Stop()
	stopRefresh()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// refreshCorpus rebuilds the IDF corpus from stored profile text. Failures
// keep the previous corpus.
func refreshCorpus(ctx context.Context, profiles *store.ProfileStore, engine *signals.Engine, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := profiles.TextDocuments(ctx, 0)
	if err != nil {
		log.Warn("corpus refresh failed", zap.Error(err))
		return
	}
	engine.SetCorpus(similarity.NewCorpus(docs))
	log.Info("corpus refreshed", zap.Int("documents", len(docs)))
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
