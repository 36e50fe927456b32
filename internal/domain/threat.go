package domain

import (
	"fmt"
	"time"
)

type ThreatType string

const (
	ThreatMalware    ThreatType = "malware"
	ThreatIntrusion  ThreatType = "intrusion"
	ThreatDDoS       ThreatType = "ddos"
	ThreatAnomaly    ThreatType = "anomaly"
	ThreatSuspicious ThreatType = "suspicious"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank нужен для сравнения уровней (авто-митигация срабатывает от high и выше).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// Threat — классифицированная угроза, продукт конвейера скоринга.
// Единственная разрешенная мутация: Mitigated false -> true (ровно один раз).
type Threat struct {
	ID           string     `json:"id"`
	Type         ThreatType `json:"type"`
	Severity     Severity   `json:"severity"`
	Source       string     `json:"source"`
	Target       string     `json:"target"`
	Description  string     `json:"description"`
	Confidence   float64    `json:"confidence"` // 0-100
	CreatedAt    time.Time  `json:"createdAt"`
	Mitigated    bool       `json:"mitigated"`
	Location     string     `json:"location,omitempty"`
	AttackVector string     `json:"attackVector,omitempty"`
}

// RawSample — сырое сетевое наблюдение до извлечения признаков.
type RawSample struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Protocol  string    `json:"protocol"`
	Port      int       `json:"port"`
	Frequency float64   `json:"frequency"` // наблюдаемая частота обращений, 0-100
	Timestamp time.Time `json:"timestamp"`
}

// Validate отсекает битые сэмплы до извлечения признаков.
// Невалидный сэмпл — это logged discard, не фатальная ошибка конвейера.
func (s RawSample) Validate() error {
	if s.Source == "" || s.Target == "" {
		return fmt.Errorf("raw sample: empty source or target")
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("raw sample: port %d out of range", s.Port)
	}
	if s.Frequency < 0 {
		return fmt.Errorf("raw sample: negative frequency %f", s.Frequency)
	}
	return nil
}
