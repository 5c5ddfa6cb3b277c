package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recipebox/internal/config"
	"recipebox/internal/metrics"
	"recipebox/internal/storage"
	"recipebox/internal/tasks"
	"recipebox/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	cancel()
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	if !cfg.Mail.Enabled() {
		logger.Warn("smtp host not configured, welcome mails will be skipped")
	}

	redisAddr := cfg.Redis.Addr()
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeAvatarCleanup, worker.NewAvatarCleanupHandler(storageClient, logger))
	mux.Handle(tasks.TypeWelcomeMail, worker.NewWelcomeMailHandler(cfg.Mail, logger))

	if addr := cfg.Worker.MetricsAddr; addr != "" {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, metricsMux); err != nil {
				logger.Error("worker metrics listener stopped", slog.Any("error", err))
			}
		}()
	}

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
