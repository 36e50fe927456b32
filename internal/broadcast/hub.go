package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ViewSource — поставщик сводного снапшота дашборда.
type ViewSource interface {
	CurrentView() domain.DashboardView
}

// Hub раздает периодические снапшоты всем подключенным зрителям.
// Снапшот сериализуется один раз за тик, фан-аут неблокирующий:
// зритель с переполненным буфером считается мертвым и снимается
// с раздачи, не задерживая остальных.
type Hub struct {
	cfg     infra.BroadcastConfig
	source  ViewSource
	logger  *zap.Logger
	metrics *telemetry.Metrics

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*conn]struct{}
}

func NewHub(cfg infra.BroadcastConfig, source ViewSource, logger *zap.Logger, m *telemetry.Metrics) *Hub {
	return &Hub{
		cfg:     cfg,
		source:  source,
		logger:  logger.Named("broadcast"),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Консоль оператора живет на другом origin в dev-режиме
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*conn]struct{}),
	}
}

// Start крутит цикл вещания до отмены контекста.
func (h *Hub) Start(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case <-ticker.C:
			h.broadcastView()
		}
	}
}

// broadcastView: один CurrentView, один Marshal, фан-аут всем.
func (h *Hub) broadcastView() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	if len(conns) == 0 {
		return
	}

	view := h.source.CurrentView()
	payload, err := json.Marshal(Envelope{Type: TypeDashboardUpdate, Data: &view})
	if err != nil {
		h.logger.Error("marshal dashboard view", zap.Error(err))
		return
	}

	for _, c := range conns {
		if !c.trySend(payload) {
			// Буфер не принял кадр — зритель не вычитывает, соединение мертво
			h.metrics.BroadcastDropped.Inc()
			h.logger.Warn("viewer not keeping up, dropping connection",
				zap.String("remote", c.ws.RemoteAddr().String()))
			c.shutdown()
		}
	}
}

// HandleWS апгрейдит HTTP-соединение и запускает насосы зрителя.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}

	c := newConn(ws, h)
	h.register(c)

	h.logger.Info("viewer connected", zap.String("remote", r.RemoteAddr))

	// Приветствие и сразу свежий снапшот, не дожидаясь тика
	c.sendEnvelope(Envelope{Type: TypeConnected, Message: "Successfully connected to AgisFL Core"})
	view := h.source.CurrentView()
	c.sendEnvelope(Envelope{Type: TypeDashboardUpdate, Data: &view})

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ConnectedViewers.Inc()
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	if ok {
		delete(h.conns, c)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.ConnectedViewers.Dec()
		h.logger.Info("viewer disconnected", zap.String("remote", c.ws.RemoteAddr().String()))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

func (h *Hub) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(h.cfg.InboundRate), h.cfg.InboundBurst)
}
