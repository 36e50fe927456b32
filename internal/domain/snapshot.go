package domain

import "time"

// TelemetryDomain идентифицирует источник снапшота.
// Инвариант: ровно один монитор пишет в каждый домен.
type TelemetryDomain string

const (
	DomainSystem  TelemetryDomain = "system"
	DomainNetwork TelemetryDomain = "network"
	DomainFL      TelemetryDomain = "fl"
)

// SystemSnapshot — неизменяемый срез метрик хоста на момент тика.
// После передачи в стор снапшот не мутируется, только замещается следующим.
type SystemSnapshot struct {
	CapturedAt  time.Time `json:"capturedAt"`
	CPUUsage    float64   `json:"cpuUsage"`    // проценты 0-100
	MemoryUsage float64   `json:"memoryUsage"` // проценты 0-100
	NetworkIO   float64   `json:"networkIO"`   // проценты 0-100
	DiskUsage   float64   `json:"diskUsage"`   // проценты 0-100
	LoadAverage float64   `json:"loadAverage"`
	Uptime      float64   `json:"uptime"` // секунды с запуска процесса
}

// NetworkSnapshot — срез сетевого трафика.
type NetworkSnapshot struct {
	CapturedAt        time.Time `json:"capturedAt"`
	Throughput        float64   `json:"throughput"` // Gbps
	PacketsPerSecond  int       `json:"packetsPerSecond"`
	ActiveConnections int       `json:"activeConnections"`
	BytesIn           int64     `json:"bytesIn"`
	BytesOut          int64     `json:"bytesOut"`
}

// Packet — одна запись симулированного захвата трафика.
// Сырье для конвейера скоринга и лента recentPackets на дашборде.
type Packet struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Protocol    string    `json:"protocol"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Size        int       `json:"size"` // байты, 64-1564
	Flags       string    `json:"flags,omitempty"`
	Suspicious  bool      `json:"suspicious"`
}

// FLClient — участник федеративного обучения.
type FLClient struct {
	ClientID         string    `json:"clientId"`
	Status           string    `json:"status"` // active, training, inactive, reconnecting
	LastSeen         time.Time `json:"lastSeen"`
	ModelAccuracy    float64   `json:"modelAccuracy"`
	TrainingRounds   int       `json:"trainingRounds"`
	DataContribution int       `json:"dataContribution"`
}

// FLModel — версия глобальной модели после раунда агрегации.
type FLModel struct {
	Version          int       `json:"version"`
	Accuracy         float64   `json:"accuracy"`
	Timestamp        time.Time `json:"timestamp"`
	ParticipantCount int       `json:"participantCount"`
	TrainingRound    int       `json:"trainingRound"`
	UpdateSize       string    `json:"updateSize,omitempty"`
}

// FLSnapshot — состояние координатора федеративного обучения.
type FLSnapshot struct {
	CapturedAt      time.Time  `json:"capturedAt"`
	Clients         []FLClient `json:"clients"`
	CurrentModel    *FLModel   `json:"currentModel"`
	TrainingRound   int        `json:"trainingRound"`
	OverallAccuracy float64    `json:"overallAccuracy"`
}
