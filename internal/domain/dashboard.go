package domain

// DashboardView — производный read-only агрегат всех доменов.
// Пересобирается при каждом чтении из последних снапшотов и хвостов историй,
// никогда не хранится как отдельное мутируемое состояние.
type DashboardView struct {
	Network      NetworkView `json:"network"`
	System       SystemView  `json:"system"`
	Threats      ThreatView  `json:"threats"`
	FL           FLView      `json:"fl"`
	RecentAlerts []Alert     `json:"recentAlerts"`
}

type NetworkView struct {
	Throughput        float64  `json:"throughput"`
	PacketsPerSecond  int      `json:"packetsPerSecond"`
	ActiveConnections int      `json:"activeConnections"`
	RecentPackets     []Packet `json:"recentPackets"`
}

type SystemView struct {
	CPUUsage    float64 `json:"cpuUsage"`
	MemoryUsage float64 `json:"memoryUsage"`
	NetworkIO   float64 `json:"networkIO"`
	DiskUsage   float64 `json:"diskUsage"`
	LoadAverage float64 `json:"loadAverage"`
	Uptime      float64 `json:"uptime"`
}

type ThreatView struct {
	ActiveThreats  []Threat `json:"activeThreats"`
	BlockedAttacks int64    `json:"blockedAttacks"`
	FalsePositives int64    `json:"falsePositives"`
	DetectionRate  float64  `json:"detectionRate"` // mitigated/total * 100
}

type FLView struct {
	ActiveClients    []FLClient `json:"activeClients"`
	CurrentModel     *FLModel   `json:"currentModel"`
	TrainingRound    int        `json:"trainingRound"`
	OverallAccuracy  float64    `json:"overallAccuracy"`
	ParticipantCount int        `json:"participantCount"`
}
