package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"golang.org/x/time/rate"
)

// Responder исполняет само действие ремедиации (блокировка адреса,
// сброс сессии). Внешняя система за интерфейсом — в тестах дублер.
type Responder interface {
	Execute(ctx context.Context, t domain.Threat) error
}

// SimResponder имитирует внешнюю систему реагирования: задержка
// 50-300мс, всегда успех.
type SimResponder struct{}

func (r *SimResponder) Execute(ctx context.Context, t domain.Threat) error {
	latency := time.Duration(50+rand.Intn(250)) * time.Millisecond
	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mitigator оборачивает респондер в слой надежности:
// Rate Limiter -> Circuit Breaker -> Retries. Сбой ремедиации не должен
// ни зашквалить внешнюю систему, ни зависнуть навечно.
type Mitigator struct {
	next    Responder
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewMitigator(next Responder, cfg infra.PipelineConfig, m *telemetry.Metrics) *Mitigator {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "agisfl-mitigator",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует «закрыться»
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if m == nil {
				return
			}
			if to == gobreaker.StateOpen {
				m.MitigatorBreakerState.Set(1)
			} else {
				m.MitigatorBreakerState.Set(0)
			}
		},
	})

	return &Mitigator{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(50), 10),
	}
}

func (m *Mitigator) Mitigate(ctx context.Context, t domain.Threat) error {
	// 1. Rate Limiter
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker + Retries
	_, err := m.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return m.next.Execute(tCtx, t)
		})

		return nil, retryErr
	})
	if err != nil {
		return fmt.Errorf("mitigation failed for threat %s: %w", t.ID, err)
	}
	return nil
}
