package store

/*
Файл store.go реализует Aggregation Store — единственную разделяемую
мутируемую структуру ядра.

Ключевые свойства:
- Снапшоты доменов хранятся за atomic.Pointer: запись — это подмена ссылки
  целиком (last-writer-wins), читатель не может увидеть наполовину
  записанный снапшот.
- Истории (угрозы, пакеты, метрики, алерты) — ограниченные кольцевые
  буферы с FIFO-вытеснением.
- CurrentView() — чистое чтение: собирает производный агрегат из последних
  снапшотов и хвостов историй при каждом вызове, ничего не кэширует.
*/

import (
	"sync/atomic"
	"time"

	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
)

const (
	activeThreatsLimit = 20
	recentPacketsLimit = 10
	recentAlertsLimit  = 5
)

type Store struct {
	system  atomic.Pointer[domain.SystemSnapshot]
	network atomic.Pointer[domain.NetworkSnapshot]
	fl      atomic.Pointer[domain.FLSnapshot]

	threats    *Ring[domain.Threat]
	packets    *Ring[domain.Packet]
	alerts     *Ring[domain.Alert]
	netHistory *Ring[domain.NetworkSnapshot]
	sysHistory *Ring[domain.SystemSnapshot]

	// Счетчики для производных показателей дашборда
	threatsFlagged atomic.Int64 // всего создано Threat
	mitigated      atomic.Int64 // переходов в mitigated (= blockedAttacks)
	falsePositives atomic.Int64 // отклонено оператором как ложные сработки
	benign         atomic.Int64 // сэмплы, отброшенные до создания Threat
}

func New(cfg infra.StoreConfig) *Store {
	return &Store{
		threats:    NewRing[domain.Threat](cfg.ThreatHistory),
		packets:    NewRing[domain.Packet](cfg.PacketHistory),
		alerts:     NewRing[domain.Alert](cfg.AlertHistory),
		netHistory: NewRing[domain.NetworkSnapshot](cfg.MetricHistory),
		sysHistory: NewRing[domain.SystemSnapshot](cfg.MetricHistory),
	}
}

// --- Запись снапшотов (по одному монитору на домен) ---

// SetSystem атомарно замещает текущий снапшот домена system.
func (s *Store) SetSystem(snap domain.SystemSnapshot) {
	s.system.Store(&snap)
	s.sysHistory.Push(snap)
}

func (s *Store) SetNetwork(snap domain.NetworkSnapshot) {
	s.network.Store(&snap)
	s.netHistory.Push(snap)
}

func (s *Store) SetFL(snap domain.FLSnapshot) {
	s.fl.Store(&snap)
}

// --- Истории ---

func (s *Store) AddThreat(t domain.Threat) {
	s.threatsFlagged.Add(1)
	s.threats.Push(t)
}

func (s *Store) AddAlert(a domain.Alert) {
	s.alerts.Push(a)
}

func (s *Store) AddPackets(ps []domain.Packet) {
	s.packets.PushBatch(ps)
}

// CountBenign учитывает сэмпл, отброшенный конвейером как шум.
func (s *Store) CountBenign() {
	s.benign.Add(1)
}

// --- Точечные мутации ---

// MarkMitigated переводит угрозу в mitigated. Переход одноразовый:
// true возвращается только если переход состоялся именно сейчас,
// повторный вызов для уже митигированной угрозы — false.
func (s *Store) MarkMitigated(id string) bool {
	transitioned := false
	s.threats.Update(func(t *domain.Threat) bool {
		if t.ID != id {
			return false
		}
		if !t.Mitigated {
			t.Mitigated = true
			s.mitigated.Add(1)
			transitioned = true
		}
		return true
	})
	return transitioned
}

// DismissThreat — операторское «ложная сработка»: угроза гасится
// и учитывается в falsePositives вместо blockedAttacks.
func (s *Store) DismissThreat(id string) bool {
	dismissed := false
	s.threats.Update(func(t *domain.Threat) bool {
		if t.ID != id {
			return false
		}
		if !t.Mitigated {
			t.Mitigated = true
			s.falsePositives.Add(1)
			dismissed = true
		}
		return true
	})
	return dismissed
}

func (s *Store) AcknowledgeAlert(id string) bool {
	acked := false
	s.alerts.Update(func(a *domain.Alert) bool {
		if a.ID != id {
			return false
		}
		if !a.Acknowledged {
			a.Acknowledged = true
			acked = true
		}
		return true
	})
	return acked
}

// --- Чтение ---

// CurrentView собирает производный агрегат. Блокировок дольше подмены
// ссылки/копирования хвоста кольца здесь нет — один вызов обслуживает
// весь фан-аут push-канала.
func (s *Store) CurrentView() domain.DashboardView {
	view := domain.DashboardView{
		RecentAlerts: s.alerts.Recent(recentAlertsLimit),
	}

	if sys := s.system.Load(); sys != nil {
		view.System = domain.SystemView{
			CPUUsage:    sys.CPUUsage,
			MemoryUsage: sys.MemoryUsage,
			NetworkIO:   sys.NetworkIO,
			DiskUsage:   sys.DiskUsage,
			LoadAverage: sys.LoadAverage,
			Uptime:      sys.Uptime,
		}
	}

	view.Network = domain.NetworkView{RecentPackets: s.packets.Recent(recentPacketsLimit)}
	if net := s.network.Load(); net != nil {
		view.Network.Throughput = net.Throughput
		view.Network.PacketsPerSecond = net.PacketsPerSecond
		view.Network.ActiveConnections = net.ActiveConnections
	}

	view.Threats = s.threatStats()

	view.FL = domain.FLView{ActiveClients: []domain.FLClient{}}
	if fl := s.fl.Load(); fl != nil {
		active := make([]domain.FLClient, 0, len(fl.Clients))
		participants := 0
		for _, c := range fl.Clients {
			active = append(active, c)
			if c.Status == "active" {
				participants++
			}
		}
		view.FL = domain.FLView{
			ActiveClients:    active,
			CurrentModel:     fl.CurrentModel,
			TrainingRound:    fl.TrainingRound,
			OverallAccuracy:  fl.OverallAccuracy,
			ParticipantCount: participants,
		}
	}

	return view
}

// threatStats — производные показатели из реальных счетчиков,
// а не псевдослучайные константы легаси-версии.
func (s *Store) threatStats() domain.ThreatView {
	recent := s.threats.Recent(s.threats.Cap())
	active := make([]domain.Threat, 0, activeThreatsLimit)
	for _, t := range recent {
		if t.Mitigated {
			continue
		}
		active = append(active, t)
		if len(active) == activeThreatsLimit {
			break
		}
	}

	total := s.threatsFlagged.Load()
	mitigated := s.mitigated.Load()
	rate := 0.0
	if total > 0 {
		rate = float64(mitigated) / float64(total) * 100
	}

	return domain.ThreatView{
		ActiveThreats:  active,
		BlockedAttacks: mitigated,
		FalsePositives: s.falsePositives.Load(),
		DetectionRate:  rate,
	}
}

// RecentSystemHistory отдает хвост истории системных метрик (аналитика).
func (s *Store) RecentSystemHistory(n int) []domain.SystemSnapshot {
	return s.sysHistory.Recent(n)
}

// RecentNetworkHistory отдает хвост истории сетевых метрик.
func (s *Store) RecentNetworkHistory(n int) []domain.NetworkSnapshot {
	return s.netHistory.Recent(n)
}

// LastSeen возвращает момент последнего успешного тика домена.
// UI различает «данные устарели из-за сбоя сэмплера» и «нет соединения».
func (s *Store) LastSeen(d domain.TelemetryDomain) time.Time {
	switch d {
	case domain.DomainSystem:
		if v := s.system.Load(); v != nil {
			return v.CapturedAt
		}
	case domain.DomainNetwork:
		if v := s.network.Load(); v != nil {
			return v.CapturedAt
		}
	case domain.DomainFL:
		if v := s.fl.Load(); v != nil {
			return v.CapturedAt
		}
	}
	return time.Time{}
}
