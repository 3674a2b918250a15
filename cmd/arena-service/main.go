package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"codeclash/internal/arena/audit"
	"codeclash/internal/arena/controller"
	"codeclash/internal/arena/executor"
	"codeclash/internal/arena/hub"
	"codeclash/internal/arena/integrity"
	"codeclash/internal/arena/judge"
	"codeclash/internal/arena/middleware"
	"codeclash/internal/arena/registry"
	"codeclash/pkg/utils/logger"
)

const defaultConfigPath = "configs/arena.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	engine := executor.NewEngine(appCfg.Executor.toEngineConfig())
	rooms := registry.New()
	wsHub := hub.New()

	var sinks []audit.Sink
	var events controller.EventStore
	if appCfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     appCfg.Redis.Addr,
			Password: appCfg.Redis.Password,
			DB:       appCfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = client.Close()
		}()
		redisSink := audit.NewRedisSink(client, appCfg.Audit.KeyPrefix, appCfg.Audit.TTL)
		sinks = append(sinks, redisSink)
		events = redisSink
	}
	if len(appCfg.Audit.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(appCfg.Audit.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka sink failed", zap.Error(err))
			return
		}
		defer func() {
			_ = kafkaSink.Close()
		}()
		sinks = append(sinks, kafkaSink)
	}
	auditSink := audit.NewMultiSink(sinks...)

	tracker := integrity.NewTracker(appCfg.Integrity.MaxWarnings)
	autoSubmitter := integrity.NewAutoSubmitter(appCfg.Integrity.AutoSubmitFallback)
	coordinator := integrity.NewCoordinator(rooms, tracker, autoSubmitter, wsHub, auditSink)
	submissions := judge.NewService(judge.NewJudge(engine), rooms, wsHub)
	archiver := audit.NewArchiver(appCfg.Audit.ArchiveDir)

	arenaController := controller.NewArenaController(engine, rooms, coordinator, submissions, archiver, events)
	httpServer := buildHTTPServer(appCfg.Server, arenaController, wsHub)

	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "arena http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, arenaController *controller.ArenaController, wsHub *hub.Hub) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceContext())
	router.Use(middleware.RequestLogger())

	arenaController.RegisterRoutes(router)
	wsHub.Register(router)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
