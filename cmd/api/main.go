package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/momo-analyzer/internal/config"
	"github.com/nimasrn/momo-analyzer/internal/handlers"
	"github.com/nimasrn/momo-analyzer/internal/parser"
	"github.com/nimasrn/momo-analyzer/internal/queue"
	"github.com/nimasrn/momo-analyzer/internal/repository"
	"github.com/nimasrn/momo-analyzer/internal/services"
	"github.com/nimasrn/momo-analyzer/internal/store"
	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
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
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	loc, err := config.Get().Location()
	if err != nil {
		logger.Error("failed to resolve parser timezone", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	healthService := services.NewHealthService()

	txStore, err := openStore(healthService)
	if err != nil {
		logger.Error("failed to open transaction store", "driver", config.Get().StoreDriver, "error", err)
		return
	}

	// without redis and a shared postgres store the api only offers synchronous imports
	var publisher services.JobPublisher
	if config.Get().RedisEnabled() && !config.Get().AsyncImportsEnabled() {
		logger.Warn("async imports disabled, the memory store is not shared with the processor", "driver", config.Get().StoreDriver)
	}
	if config.Get().AsyncImportsEnabled() {
		redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{config.Get().RedisAddr},
			ClientName: config.Get().AppName,
			DB:         config.Get().RedisDatabase,
			Username:   config.Get().RedisUsername,
			Password:   config.Get().RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		q, err := queue.NewQueue(redisAdap, config.Get().ImportQueue())
		if err != nil {
			logger.Error("failed creating import queue", "error", err)
			return
		}
		publisher = q
		healthService.Register("redis", redisAdap.Ping)
		defer redis.Close("default")
	}

	// services
	transactionService := services.NewTransactionService(txStore)
	importService := services.NewImportService(txStore, parser.NewParser(parser.WithLocation(loc)), publisher)

	// transport
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.BasicAuthMiddleware(config.Get().AuthRealm, config.Get().AuthUser, config.Get().AuthPassword))
	s.Use(xhttp.TimeoutMiddleware(config.Get().HttpRequestTimeout))
	s.Router = xhttp.CreateDefaultRouter()
	s.GET("/metrics", prom.Handler())

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(transactionService))
	handlers.RegisterImportRoutes(g, handlers.NewImportHandler(importService))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))
	s.GET("/health", handlers.NewHealthHandler(healthService).GetHealth)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(config.Get().HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
	logger.Info("api stopped")
}

func openStore(health *services.HealthService) (services.TransactionStore, error) {
	switch config.Get().StoreDriver {
	case config.StoreDriverPostgres:
		db, err := pg.CreateReadWrite(config.Get().PostgresRead(), config.Get().PostgresWrite(), config.Get().AppEnv == config.AppEnvDev)
		if err != nil {
			return nil, err
		}
		health.Register("postgres", db.Ping)
		return repository.NewTransactionRepository(db), nil
	default:
		path := config.Get().StoreFilePath
		s := store.NewMemoryStore(store.NewJSONFile(path))
		if err := s.Open(); err != nil {
			return nil, err
		}
		health.Register("store", func(context.Context) error { return nil })
		return s, nil
	}
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
