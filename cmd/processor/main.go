package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/momo-analyzer/internal/config"
	"github.com/nimasrn/momo-analyzer/internal/parser"
	"github.com/nimasrn/momo-analyzer/internal/processor"
	"github.com/nimasrn/momo-analyzer/internal/repository"
	"github.com/nimasrn/momo-analyzer/internal/services"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/nimasrn/momo-analyzer/pkg/pg"
	"github.com/nimasrn/momo-analyzer/pkg/prom"
	"github.com/nimasrn/momo-analyzer/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	defer logger.Sync()
	if err := logger.SetLevel(config.Get().LogLevel); err != nil {
		logger.Warn("invalid LOG_LEVEL, keeping info", "level", config.Get().LogLevel)
	}
	logger.Info("starting processor", "version", version, "commit", commit, "date", date)

	if err := config.Get().ValidateProcessor(); err != nil {
		logger.Error("processor cannot start", "error", err)
		return
	}

	loc, err := config.Get().Location()
	if err != nil {
		logger.Error("failed to resolve parser timezone", "error", err)
		return
	}

	db, err := pg.CreateReadWrite(config.Get().PostgresRead(), config.Get().PostgresWrite(), config.Get().AppEnv == config.AppEnvDev)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	txStore := repository.NewTransactionRepository(db)

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: config.Get().AppName + "-processor",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}
	defer redis.Close("default")

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	importService := services.NewImportService(txStore, parser.NewParser(parser.WithLocation(loc)), nil)

	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = config.Get().QueueMaxRetries
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	service := processor.NewProcessorService(redisAdap, processor.Config{
		Queue:             config.Get().ImportQueue(),
		Consumers:         config.Get().QueueConsumers,
		Workers:           config.Get().QueueWorkers,
		ProcessingTimeout: config.Get().QueueVisibilityTimeout,
	})
	service.RegisterProcessor(processor.NewImportProcessor(importService, idempotencyService))

	go prom.ListenAndServer(config.Get().MetricsAddr, "/metrics")

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if path, ok := strings.CutPrefix(v, "--env="); ok {
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "path", path, "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
