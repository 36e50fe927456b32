package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/agisfl-core/internal/broadcast"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/intel"
	"github.com/xela07ax/agisfl-core/internal/monitor"
	"github.com/xela07ax/agisfl-core/internal/pipeline"
	"github.com/xela07ax/agisfl-core/internal/server"
	"github.com/xela07ax/agisfl-core/internal/store"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Конфигурация
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// 2. Логгер
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting agisfl core")

	// 3. Метрики
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	// 4. Агрегирующий стор и пакетный инжестор
	st := store.New(cfg.Store)
	ingestor := store.NewPacketIngestor(
		st,
		cfg.Store.PacketBufferSize,
		cfg.Store.PacketFlushEvery,
		cfg.Store.PacketFlushBatch,
		logger, metrics,
	)
	ingestor.Start()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// 5. Threat intelligence: встроенный сид плюс опциональный Redis фид
	feed := intel.NewFeed(logger)
	if cfg.Intel.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Intel.Addr,
			Password: cfg.Intel.Password,
			DB:       cfg.Intel.DB,
		})
		go feed.Listen(rootCtx, rdb, cfg.Intel.Channel, cfg.Intel.SetKey)
	}

	// 6. Конвейер скоринга с авто-митигацией
	noise := pipeline.SystemNoise{}
	mitigator := pipeline.NewMitigator(&pipeline.SimResponder{}, cfg.Pipeline, metrics)
	pipe := pipeline.New(st, feed, mitigator, cfg.Pipeline, noise, logger, metrics)

	// 7. Мониторы по доменам
	monitors := []*monitor.Runner{
		monitor.NewSystemMonitor(st, monitor.NewSimSystemSampler(), cfg.Monitors.SystemInterval, logger, metrics),
		monitor.NewNetworkMonitor(st, ingestor, pipe, &monitor.SimNetworkSampler{}, cfg.Monitors.NetworkInterval, logger, metrics),
		monitor.NewFLMonitor(st, monitor.NewSimFLCoordinator(), cfg.Monitors.FLInterval, logger, metrics),
	}
	for _, m := range monitors {
		m.Start(rootCtx)
	}

	// 8. Вещание и HTTP поверхность
	hub := broadcast.NewHub(cfg.Broadcast, st, logger, metrics)

	authSvc, err := server.NewAuthService(cfg.Auth)
	if err != nil {
		logger.Fatal("auth service", zap.Error(err))
	}
	srv := server.New(cfg.Server, st, hub, authSvc, metrics, registry, logger)

	g, gCtx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		if err := hub.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(srv.Run)

	// 9. Ожидание сигнала остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-gCtx.Done():
		logger.Error("component failed, shutting down")
	}

	// 10. Плавная остановка: сначала входящий трафик, потом конвейер
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	rootCancel()
	for _, m := range monitors {
		m.Stop()
	}
	pipe.Wait()
	ingestor.Stop()

	if err := g.Wait(); err != nil {
		logger.Error("component error", zap.Error(err))
	}

	logger.Info("agisfl core stopped")
}
