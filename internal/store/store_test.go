package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
)

func testStore() *Store {
	return New(infra.StoreConfig{
		ThreatHistory: 100,
		PacketHistory: 1000,
		MetricHistory: 1000,
		AlertHistory:  100,
	})
}

func testThreat(id string, severity domain.Severity) domain.Threat {
	return domain.Threat{
		ID:        id,
		Type:      domain.ThreatIntrusion,
		Severity:  severity,
		Source:    "203.0.113.1:4444",
		Target:    "10.0.0.1:22",
		CreatedAt: time.Now(),
	}
}

func TestStore_LastWriterWins(t *testing.T) {
	s := testStore()

	s.SetSystem(domain.SystemSnapshot{CPUUsage: 10})
	s.SetSystem(domain.SystemSnapshot{CPUUsage: 55})

	assert.Equal(t, 55.0, s.CurrentView().System.CPUUsage)
}

// Снапшот замещается целиком: читатель никогда не должен увидеть
// поля из разных поколений записи.
func TestStore_NoTornSnapshots(t *testing.T) {
	s := testStore()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for gen := 1.0; ; gen++ {
			select {
			case <-stop:
				return
			default:
			}
			s.SetSystem(domain.SystemSnapshot{
				CPUUsage:    gen,
				MemoryUsage: gen,
				NetworkIO:   gen,
				DiskUsage:   gen,
			})
		}
	}()

	for i := 0; i < 10000; i++ {
		v := s.CurrentView().System
		require.Equal(t, v.CPUUsage, v.MemoryUsage, "torn snapshot")
		require.Equal(t, v.CPUUsage, v.NetworkIO, "torn snapshot")
		require.Equal(t, v.CPUUsage, v.DiskUsage, "torn snapshot")
	}

	close(stop)
	wg.Wait()
}

func TestStore_MarkMitigatedOnce(t *testing.T) {
	s := testStore()
	s.AddThreat(testThreat("t1", domain.SeverityHigh))

	require.True(t, s.MarkMitigated("t1"))
	// Повторный переход невозможен, счетчик не дергается
	assert.False(t, s.MarkMitigated("t1"))
	assert.False(t, s.MarkMitigated("missing"))

	stats := s.CurrentView().Threats
	assert.Equal(t, int64(1), stats.BlockedAttacks)
	assert.Empty(t, stats.ActiveThreats)
}

func TestStore_DismissCountsFalsePositive(t *testing.T) {
	s := testStore()
	s.AddThreat(testThreat("t1", domain.SeverityMedium))

	require.True(t, s.DismissThreat("t1"))
	assert.False(t, s.DismissThreat("t1"), "already dismissed")

	stats := s.CurrentView().Threats
	assert.Equal(t, int64(1), stats.FalsePositives)
	assert.Equal(t, int64(0), stats.BlockedAttacks)
	assert.Empty(t, stats.ActiveThreats)
}

func TestStore_DetectionRateDerived(t *testing.T) {
	s := testStore()

	assert.Equal(t, 0.0, s.CurrentView().Threats.DetectionRate)

	for i := 0; i < 4; i++ {
		s.AddThreat(testThreat(fmt.Sprintf("t%d", i), domain.SeverityHigh))
	}
	s.MarkMitigated("t0")
	s.MarkMitigated("t1")
	s.MarkMitigated("t2")

	assert.InDelta(t, 75.0, s.CurrentView().Threats.DetectionRate, 0.001)
}

func TestStore_ActiveThreatsLimitAndOrder(t *testing.T) {
	s := testStore()
	for i := 0; i < 30; i++ {
		s.AddThreat(testThreat(fmt.Sprintf("t%d", i), domain.SeverityLow))
	}
	s.MarkMitigated("t29")

	active := s.CurrentView().Threats.ActiveThreats
	require.Len(t, active, 20)
	// Новые первыми; t29 погашена и пропущена
	assert.Equal(t, "t28", active[0].ID)
	assert.Equal(t, "t9", active[19].ID)
}

func TestStore_ViewLimits(t *testing.T) {
	s := testStore()

	for i := 0; i < 25; i++ {
		s.AddPackets([]domain.Packet{{ID: fmt.Sprintf("p%d", i)}})
		s.AddAlert(domain.Alert{ID: fmt.Sprintf("a%d", i), Type: domain.AlertInfo})
	}

	view := s.CurrentView()
	assert.Len(t, view.Network.RecentPackets, 10)
	assert.Equal(t, "p24", view.Network.RecentPackets[0].ID)
	assert.Len(t, view.RecentAlerts, 5)
	assert.Equal(t, "a24", view.RecentAlerts[0].ID)
}

func TestStore_AcknowledgeAlertOnce(t *testing.T) {
	s := testStore()
	s.AddAlert(domain.Alert{ID: "a1", Type: domain.AlertCritical})

	require.True(t, s.AcknowledgeAlert("a1"))
	assert.False(t, s.AcknowledgeAlert("a1"))
	assert.False(t, s.AcknowledgeAlert("missing"))

	require.Len(t, s.CurrentView().RecentAlerts, 1)
	assert.True(t, s.CurrentView().RecentAlerts[0].Acknowledged)
}

func TestStore_FLParticipantCount(t *testing.T) {
	s := testStore()
	s.SetFL(domain.FLSnapshot{
		CapturedAt: time.Now(),
		Clients: []domain.FLClient{
			{ClientID: "client-001", Status: "active"},
			{ClientID: "client-002", Status: "training"},
			{ClientID: "client-003", Status: "active"},
			{ClientID: "client-004", Status: "inactive"},
		},
		TrainingRound:   200,
		OverallAccuracy: 0.981,
	})

	fl := s.CurrentView().FL
	assert.Equal(t, 2, fl.ParticipantCount)
	assert.Len(t, fl.ActiveClients, 4)
	assert.Equal(t, 200, fl.TrainingRound)
}

func TestStore_EmptyViewIsServable(t *testing.T) {
	s := testStore()
	view := s.CurrentView()

	// До первого тика мониторов view отдается с нулевыми значениями
	assert.Zero(t, view.System.CPUUsage)
	assert.NotNil(t, view.FL.ActiveClients)
	assert.Empty(t, view.Threats.ActiveThreats)
}

func TestStore_LastSeenPerDomain(t *testing.T) {
	s := testStore()
	assert.True(t, s.LastSeen(domain.DomainNetwork).IsZero())

	ts := time.Now()
	s.SetNetwork(domain.NetworkSnapshot{CapturedAt: ts})
	assert.Equal(t, ts, s.LastSeen(domain.DomainNetwork))
	assert.True(t, s.LastSeen(domain.DomainSystem).IsZero())
}
