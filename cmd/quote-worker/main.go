// cmd/quote-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quote-engine/internal/common/camunda"
	"quote-engine/internal/common/config"
	"quote-engine/internal/common/database"
	"quote-engine/internal/common/logger"
	"quote-engine/internal/common/observability"
	"quote-engine/internal/engine"
	"quote-engine/internal/engine/templates"

	cvq "quote-engine/internal/workers/quotes/compare-vendor-quotes"
	mqt "quote-engine/internal/workers/quotes/map-quote-template"
	ra "quote-engine/internal/workers/quotes/record-analysis"
)

// retryWithBackoff retries transient failures with exponential backoff.
// Anything camunda.IsTransient rejects fails immediately.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !camunda.IsTransient(err) {
			return fmt.Errorf("%s failed: %w", operationName, err)
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying", operationName),
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
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting quote worker",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Zeebe ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClient(ctx, cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected", zap.String("broker", cfg.Camunda.BrokerAddress))

	// --- PostgreSQL ---
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
		zapLog.Fatal("postgres failed", zap.Error(err))
	}
	defer pg.Close()
	if err := database.EnsureSchema(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected")

	// --- Redis (optional) ---
	var cache redis.Cmdable
	if cfg.Cache.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return database.PingRedis(ctx, rdb)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, analyses will not be cached", zap.Error(err))
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			cache = rdb
			zapLog.Info("Redis connected")
		}
	}

	// --- Workers ---
	var workers []worker.JobWorker
	start := func(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
		if jw := camunda.StartWorker(zeebeClient, taskType, wcfg, handler, obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	{
		wcfg := config.GetWorkerConfig(cfg, cvq.TaskType)
		handler := cvq.NewHandler(&cvq.Config{
			Timeout:        config.GetDuration(wcfg.Timeout),
			CacheEnabled:   cfg.Cache.Enabled,
			CacheTTL:       config.GetDuration(cfg.Cache.TTL),
			CacheKeyPrefix: cfg.Cache.KeyPrefix,
			Engine:         engine.ConfigFromSettings(cfg.Engine),
		}, cache, obs, log)
		start(cvq.TaskType, wcfg, handler.Handle)
	}

	{
		wcfg := config.GetWorkerConfig(cfg, mqt.TaskType)
		handler := mqt.NewHandler(&mqt.Config{
			TemplateRegistry: cfg.Templates.RegistryPath,
			CacheTTL:         config.GetDuration(cfg.Templates.CacheTTL),
			Timeout:          config.GetDuration(wcfg.Timeout),
			Mapper: templates.Config{
				ReviewThreshold: cfg.Templates.ReviewThreshold,
				MinConfidence:   cfg.Templates.MinConfidence,
			},
		}, obs, log)
		start(mqt.TaskType, wcfg, handler.Handle)
	}

	{
		wcfg := config.GetWorkerConfig(cfg, ra.TaskType)
		handler := ra.NewHandler(&ra.Config{
			Timeout: config.GetDuration(wcfg.Timeout),
		}, pg.DB, log)
		start(ra.TaskType, wcfg, handler.Handle)
	}

	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok", "postgres": "ok"}
		status := http.StatusOK
		if err := zeebeClient.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		label := "ready"
		if status != http.StatusOK {
			label = "not_ready"
		}
		writeStatus(w, status, label, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("health/metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("health/metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("shutdown signal received, stopping workers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error stopping health server", zap.Error(err))
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("quote worker stopped")
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
