package monitor

import (
	"context"
	"math/rand"
	"time"

	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/store"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

// SystemSampler — контракт сэмплера системных метрик.
// Продовая реализация — симуляция: реальный сбор метрик ОС вне скоупа.
type SystemSampler interface {
	Sample(ctx context.Context) (domain.SystemSnapshot, error)
}

// SimSystemSampler генерирует правдоподобные паттерны нагрузки хоста:
// базовый уровень с редкими всплесками CPU и сетевого IO.
type SimSystemSampler struct {
	startedAt time.Time
}

func NewSimSystemSampler() *SimSystemSampler {
	return &SimSystemSampler{startedAt: time.Now()}
}

func (s *SimSystemSampler) Sample(ctx context.Context) (domain.SystemSnapshot, error) {
	cpu := 30 + rand.Float64()*40
	if rand.Float64() < 0.1 {
		cpu += rand.Float64() * 30 // редкий всплеск
	}

	netIO := 20 + rand.Float64()*40
	if rand.Float64() < 0.15 {
		netIO += rand.Float64() * 40 // сетевой burst
	}

	return domain.SystemSnapshot{
		CapturedAt:  time.Now(),
		CPUUsage:    clamp(cpu, 100),
		MemoryUsage: 45 + rand.Float64()*30,
		NetworkIO:   clamp(netIO, 100),
		DiskUsage:   65 + rand.Float64()*10,
		LoadAverage: 0.2 + rand.Float64()*1.5,
		Uptime:      time.Since(s.startedAt).Seconds(),
	}, nil
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

// NewSystemMonitor собирает монитор домена system: тик снимает сэмпл
// и атомарно замещает снапшот в сторе.
func NewSystemMonitor(s *store.Store, sampler SystemSampler, interval time.Duration, logger *zap.Logger, m *telemetry.Metrics) *Runner {
	return NewRunner("system-monitor", string(domain.DomainSystem), interval, func(ctx context.Context) error {
		snap, err := sampler.Sample(ctx)
		if err != nil {
			return err
		}
		s.SetSystem(snap)
		return nil
	}, logger, m)
}
