package domain

import "time"

type AlertType string

const (
	AlertInfo     AlertType = "info"
	AlertWarning  AlertType = "warning"
	AlertCritical AlertType = "critical"
)

// Alert — событие для ленты оператора. Мутируется только явным Acknowledge.
type Alert struct {
	ID           string    `json:"id"`
	Type         AlertType `json:"type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Source       string    `json:"source"` // threat-pipeline, fl-coordinator, system-monitor
	Acknowledged bool      `json:"acknowledged"`
	Timestamp    time.Time `json:"timestamp"`
}
