package store

/*
Файл ingestor.go реализует неблокирующий прием пакетных записей от
сетевого монитора.

- Non-blocking Ingest: горячий путь монитора кладет пакет в канал и не
  ждет записи в кольцо.
- Batching: воркер копит пачку и сбрасывает ее в кольцо по таймеру или
  при достижении лимита.
- Drain Pattern: Stop() закрывает входной канал и дожидается, пока воркер
  вычитает остатки и сделает финальный сброс — данные при остановке
  не теряются.
*/

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

type PacketIngestor struct {
	ch      chan domain.Packet
	store   *Store
	logger  *zap.Logger
	metrics *telemetry.Metrics
	wg      sync.WaitGroup

	flushEvery time.Duration
	flushBatch int

	// Атомарный флаг (0 - открыт, 1 - закрыт): Add после Stop не паникует
	isClosed int32
}

func NewPacketIngestor(s *Store, bufSize int, flushEvery time.Duration, flushBatch int, logger *zap.Logger, m *telemetry.Metrics) *PacketIngestor {
	if bufSize <= 0 {
		bufSize = 1024
	}
	if flushBatch <= 0 {
		flushBatch = 64
	}
	if flushEvery <= 0 {
		flushEvery = 250 * time.Millisecond
	}
	return &PacketIngestor{
		ch:         make(chan domain.Packet, bufSize),
		store:      s,
		logger:     logger.With(zap.String("mod", "packet-ingestor")),
		metrics:    m,
		flushEvery: flushEvery,
		flushBatch: flushBatch,
	}
}

func (in *PacketIngestor) Start() {
	in.wg.Add(1)
	go in.worker()
}

// Stop «запирает» вход и ждет, пока воркер допишет остатки.
func (in *PacketIngestor) Stop() {
	atomic.StoreInt32(&in.isClosed, 1)

	// Крошечная пауза, чтобы текущие Add успели проскочить
	time.Sleep(10 * time.Millisecond)

	close(in.ch)
	in.wg.Wait()
	in.logger.Info("packet ingestor stopped gracefully")
}

// Add — неблокирующая запись со стратегией Load Shedding:
// при переполненном буфере пакет теряется с записью в лог,
// монитор никогда не застревает на ожидании стора.
func (in *PacketIngestor) Add(p domain.Packet) {
	if atomic.LoadInt32(&in.isClosed) == 1 {
		in.logger.Warn("packet dropped: ingestor is stopping", zap.String("id", p.ID))
		return
	}

	select {
	case in.ch <- p:
		in.metrics.PacketBufferFill.Set(float64(len(in.ch)))
	default:
		in.logger.Error("packet_buffer_overflow",
			zap.String("source", p.Source),
			zap.String("protocol", p.Protocol),
		)
	}
}

func (in *PacketIngestor) worker() {
	defer in.wg.Done()

	batch := make([]domain.Packet, 0, in.flushBatch)
	ticker := time.NewTicker(in.flushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			in.store.AddPackets(batch)
			batch = batch[:0]
		}
		in.metrics.PacketBufferFill.Set(float64(len(in.ch)))
	}

	for {
		select {
		case p, ok := <-in.ch:
			if !ok {
				// Канал закрыт в Stop() — вычитали всё, финальный сброс и выход
				flush()
				in.logger.Info("packet ingest worker finished")
				return
			}
			batch = append(batch, p)
			if len(batch) >= in.flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
