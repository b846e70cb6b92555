package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cfg "github.com/taxkit/tax-document-renamer/config"
	"github.com/taxkit/tax-document-renamer/internal/service/run"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
	"github.com/taxkit/tax-document-renamer/pkg/queue"
	"github.com/taxkit/tax-document-renamer/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	runService, err := run.GetService(log)
	if err != nil {
		log.Error("Failed to create run service", logger.Error(err))
		os.Exit(1)
	}

	rc := cfg.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:     rc.Addr,
		RedisPassword: rc.Password,
		RedisDB:       rc.DB,
		Concurrency:   cfg.GetAppConfig().WorkerConcurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	statusQueue, err := queue.GetQueue()
	if err != nil {
		log.Error("Failed to create status queue", logger.Error(err))
		os.Exit(1)
	}

	runWorker, err := worker.NewRunWorker(workerCfg, runService, statusQueue, log)
	if err != nil {
		log.Error("Failed to create run worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	runWorker.Stop()
	log.Info("Worker stopped")
}
