package monitor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/pipeline"
	"github.com/xela07ax/agisfl-core/internal/store"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

// NetworkSample — продукт одного тика сетевого монитора: снапшот
// трафика, симулированные пакеты и кандидаты в угрозы для конвейера.
type NetworkSample struct {
	Snapshot   domain.NetworkSnapshot
	Packets    []domain.Packet
	Candidates []domain.RawSample
}

type NetworkSampler interface {
	Sample(ctx context.Context) (NetworkSample, error)
}

var (
	packetProtocols = []string{"TCP", "UDP", "HTTP", "HTTPS", "ICMP", "DNS"}
	packetSources   = []string{"192.168.1.45", "10.0.0.23", "172.16.0.12", "203.0.113.1", "198.51.100.2"}
	packetDests     = []string{"10.0.0.15", "8.8.8.8", "192.168.1.1", "172.16.0.1", "203.0.113.100"}

	candidateSources = []string{"192.168.1.100", "10.0.0.50", "203.0.113.1", "172.16.0.10"}
	candidateTargets = []string{"192.168.1.10", "10.0.0.1", "172.16.0.1"}
	candidateProtos  = []string{"TCP", "UDP", "ICMP"}
)

// SimNetworkSampler — симуляция захвата трафика: реальный packet capture
// вне скоупа, форма данных совпадает.
type SimNetworkSampler struct{}

func (s *SimNetworkSampler) Sample(ctx context.Context) (NetworkSample, error) {
	now := time.Now()

	snap := domain.NetworkSnapshot{
		CapturedAt:        now,
		Throughput:        1 + rand.Float64()*5,        // 1-6 Gbps
		PacketsPerSecond:  10000 + rand.Intn(10000),    // 10k-20k
		ActiveConnections: 1000 + rand.Intn(500),       // 1000-1500
		BytesIn:           int64(500000 + rand.Intn(1000000)),
		BytesOut:          int64(400000 + rand.Intn(800000)),
	}

	packets := make([]domain.Packet, 0, 3)
	for i := 0; i < 1+rand.Intn(3); i++ {
		packets = append(packets, simPacket(now))
	}

	// Один кандидат на тик: частота дальше решает, DDoS это или нет
	candidates := []domain.RawSample{{
		Source:    candidateSources[rand.Intn(len(candidateSources))],
		Target:    candidateTargets[rand.Intn(len(candidateTargets))],
		Protocol:  candidateProtos[rand.Intn(len(candidateProtos))],
		Port:      rand.Intn(65536),
		Frequency: rand.Float64() * 100,
		Timestamp: now,
	}}

	return NetworkSample{Snapshot: snap, Packets: packets, Candidates: candidates}, nil
}

func simPacket(now time.Time) domain.Packet {
	proto := packetProtocols[rand.Intn(len(packetProtocols))]
	src := packetSources[rand.Intn(len(packetSources))]
	dst := packetDests[rand.Intn(len(packetDests))]

	// Для TCP/UDP дописываем порты
	flags := ""
	if proto == "TCP" || proto == "UDP" {
		src = fmt.Sprintf("%s:%d", src, rand.Intn(65536))
		dst = fmt.Sprintf("%s:%d", dst, rand.Intn(65536))
		if proto == "TCP" {
			flags = "SYN,ACK"
		}
	}

	return domain.Packet{
		ID:          uuid.New().String(),
		Timestamp:   now,
		Protocol:    proto,
		Source:      src,
		Destination: dst,
		Size:        64 + rand.Intn(1500),
		Flags:       flags,
		Suspicious:  rand.Float64() < 0.05,
	}
}

// NewNetworkMonitor собирает монитор домена network. Помимо снапшота
// тик раскладывает пакеты в неблокирующий инжестор и отдает кандидатов
// конвейеру скоринга.
func NewNetworkMonitor(
	s *store.Store,
	ingestor *store.PacketIngestor,
	pipe *pipeline.Pipeline,
	sampler NetworkSampler,
	interval time.Duration,
	logger *zap.Logger,
	m *telemetry.Metrics,
) *Runner {
	return NewRunner("network-monitor", string(domain.DomainNetwork), interval, func(ctx context.Context) error {
		smp, err := sampler.Sample(ctx)
		if err != nil {
			return err
		}

		s.SetNetwork(smp.Snapshot)
		for _, p := range smp.Packets {
			ingestor.Add(p)
		}
		for _, c := range smp.Candidates {
			pipe.Process(ctx, c)
		}
		return nil
	}, logger, m)
}
