package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

func TestPacketIngestor_BatchesIntoRing(t *testing.T) {
	s := testStore()
	in := NewPacketIngestor(s, 128, 10*time.Millisecond, 8, zap.NewNop(), telemetry.NewMetrics(nil))
	in.Start()

	for i := 0; i < 20; i++ {
		in.Add(domain.Packet{ID: fmt.Sprintf("p%d", i)})
	}

	require.Eventually(t, func() bool {
		return len(s.CurrentView().Network.RecentPackets) == 10
	}, time.Second, 5*time.Millisecond)

	in.Stop()
}

func TestPacketIngestor_StopDrainsBacklog(t *testing.T) {
	s := testStore()
	// Большой интервал сброса: до Stop воркер по таймеру не успеет
	in := NewPacketIngestor(s, 128, time.Hour, 1000, zap.NewNop(), telemetry.NewMetrics(nil))
	in.Start()

	for i := 0; i < 5; i++ {
		in.Add(domain.Packet{ID: fmt.Sprintf("p%d", i)})
	}
	in.Stop()

	assert.Len(t, s.CurrentView().Network.RecentPackets, 5)
}

func TestPacketIngestor_AddAfterStopIsSafe(t *testing.T) {
	s := testStore()
	in := NewPacketIngestor(s, 16, time.Millisecond, 4, zap.NewNop(), telemetry.NewMetrics(nil))
	in.Start()
	in.Stop()

	// Не паникует и не пишет в закрытый канал
	in.Add(domain.Packet{ID: "late"})
	assert.Empty(t, s.CurrentView().Network.RecentPackets)
}

func TestPacketIngestor_OverflowSheds(t *testing.T) {
	s := testStore()
	in := NewPacketIngestor(s, 2, time.Hour, 1000, zap.NewNop(), telemetry.NewMetrics(nil))
	// Воркер не запущен: буфер заполняется и начинает шедить

	for i := 0; i < 10; i++ {
		in.Add(domain.Packet{ID: fmt.Sprintf("p%d", i)}) // не блокируется
	}

	in.Start()
	in.Stop()
	assert.Len(t, s.CurrentView().Network.RecentPackets, 2)
}
