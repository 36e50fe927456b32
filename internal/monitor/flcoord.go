package monitor

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/store"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

// FLSampler — контракт координатора федеративного обучения.
// Сэмплер со связанным состоянием: раунд и точность живут между тиками.
type FLSampler interface {
	Sample(ctx context.Context) (domain.FLSnapshot, []domain.Alert, error)
}

var flClientStatuses = []string{"active", "training", "inactive", "reconnecting"}

// SimFLCoordinator симулирует раунды федеративного обучения:
// вероятностное продвижение раунда, дрейф точности к 0.999,
// случайная миграция статусов клиентов, милстоун-алерты.
type SimFLCoordinator struct {
	round    int
	accuracy float64
	clients  map[string]domain.FLClient
	model    *domain.FLModel
}

func NewSimFLCoordinator() *SimFLCoordinator {
	c := &SimFLCoordinator{
		round:    156,
		accuracy: 0.973,
		clients:  make(map[string]domain.FLClient),
	}

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("client-%03d", i)
		status := "active"
		if rand.Float64() < 0.3 {
			status = "inactive"
		}
		c.clients[id] = domain.FLClient{
			ClientID:         id,
			Status:           status,
			LastSeen:         time.Now(),
			ModelAccuracy:    0.95 + rand.Float64()*0.05,
			TrainingRounds:   100 + rand.Intn(50),
			DataContribution: 500 + rand.Intn(2000),
		}
	}

	c.model = &domain.FLModel{
		Version:          1,
		Accuracy:         c.accuracy,
		Timestamp:        time.Now(),
		ParticipantCount: c.activeCount(),
		TrainingRound:    c.round,
	}
	return c
}

func (c *SimFLCoordinator) Sample(ctx context.Context) (domain.FLSnapshot, []domain.Alert, error) {
	now := time.Now()
	var alerts []domain.Alert

	// Раунд агрегации завершается примерно на каждом третьем тике
	if rand.Float64() < 0.3 {
		c.round++
		c.accuracy = minF(0.999, c.accuracy+rand.Float64()*0.001)

		c.model = &domain.FLModel{
			Version:          c.round,
			Accuracy:         c.accuracy,
			Timestamp:        now,
			ParticipantCount: c.activeCount(),
			TrainingRound:    c.round,
			UpdateSize:       fmt.Sprintf("%dKB", 100+rand.Intn(500)),
		}

		if c.accuracy > 0.98 && c.round%10 == 0 {
			alerts = append(alerts, domain.Alert{
				ID:        uuid.New().String(),
				Type:      domain.AlertInfo,
				Title:     "Model Accuracy Milestone",
				Message:   fmt.Sprintf("Federated learning model achieved %.1f%% accuracy in round %d", c.accuracy*100, c.round),
				Source:    "fl-coordinator",
				Timestamp: now,
			})
		}
	}

	// Миграция статусов: ~10% клиентов меняют состояние за тик
	for id, client := range c.clients {
		if rand.Float64() < 0.1 {
			client.Status = flClientStatuses[rand.Intn(len(flClientStatuses))]
			client.LastSeen = now
			c.clients[id] = client
		}
	}

	return domain.FLSnapshot{
		CapturedAt:      now,
		Clients:         c.clientList(),
		CurrentModel:    c.model,
		TrainingRound:   c.round,
		OverallAccuracy: c.accuracy,
	}, alerts, nil
}

func (c *SimFLCoordinator) activeCount() int {
	n := 0
	for _, cl := range c.clients {
		if cl.Status == "active" {
			n++
		}
	}
	return n
}

// clientList — копия с устойчивым порядком, чтобы снапшот не дергался
// между тиками из-за обхода мапы.
func (c *SimFLCoordinator) clientList() []domain.FLClient {
	out := make([]domain.FLClient, 0, len(c.clients))
	for _, cl := range c.clients {
		out = append(out, cl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// NewFLMonitor собирает монитор домена fl: тик обновляет снапшот
// координатора и пробрасывает милстоун-алерты в стор.
func NewFLMonitor(s *store.Store, sampler FLSampler, interval time.Duration, logger *zap.Logger, m *telemetry.Metrics) *Runner {
	return NewRunner("fl-coordinator", string(domain.DomainFL), interval, func(ctx context.Context) error {
		snap, alerts, err := sampler.Sample(ctx)
		if err != nil {
			return err
		}
		s.SetFL(snap)
		for _, a := range alerts {
			s.AddAlert(a)
		}
		return nil
	}, logger, m)
}
