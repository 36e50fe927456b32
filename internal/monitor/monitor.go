package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

// TickFunc — один тик монитора: снять сэмпл и передать его в стор.
type TickFunc func(ctx context.Context) error

// Runner — периодическая задача с graceful stop.
// Отказ одного тика логируется и не останавливает цикл: предыдущий
// снапшот остается видимым до следующего успешного тика
// (stale-but-available важнее, чем unavailable).
type Runner struct {
	name     string
	domain   string
	interval time.Duration
	tick     TickFunc
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(name, domain string, interval time.Duration, tick TickFunc, logger *zap.Logger, m *telemetry.Metrics) *Runner {
	return &Runner{
		name:     name,
		domain:   domain,
		interval: interval,
		tick:     tick,
		logger:   logger.Named(name),
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Start запускает цикл монитора. Первый тик выполняется сразу,
// чтобы дашборд не ждал целый интервал до первых данных.
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("monitor started", zap.Duration("interval", r.interval))
		r.runTick(ctx)

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("monitor stopped")
				return
			case <-ticker.C:
				r.runTick(ctx)
			}
		}
	}()
}

// Stop отменяет таймер и дожидается завершения текущего тика —
// принудительных обрывов посреди записи снапшота нет.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

func (r *Runner) runTick(ctx context.Context) {
	r.metrics.SamplesTotal.WithLabelValues(r.domain).Inc()

	// Паника сэмплера — тоже изолированный отказ тика, не падение процесса
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("sampler panic: %v", rec)
			}
		}()
		return r.tick(ctx)
	}()

	if err != nil {
		r.metrics.SampleFailures.WithLabelValues(r.domain).Inc()
		r.logger.Error("sample tick failed", zap.Error(err))
	}
}
