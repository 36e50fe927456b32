package broadcast

import "github.com/xela07ax/agisfl-core/internal/domain"

// Типы конвертов протокола вещания. Клиент отправляет ping и
// request_update, сервер отвечает остальными.
const (
	TypePing            = "ping"
	TypePong            = "pong"
	TypeRequestUpdate   = "request_update"
	TypeConnected       = "connected"
	TypeDashboardUpdate = "dashboard_update"
	TypeError           = "error"
)

// Envelope — единый конверт JSON-протокола поверх WebSocket.
// Data заполняется только для dashboard_update.
type Envelope struct {
	Type    string                `json:"type"`
	Message string                `json:"message,omitempty"`
	Data    *domain.DashboardView `json:"data,omitempty"`
}
