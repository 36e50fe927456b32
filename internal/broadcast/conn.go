package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 4 << 10
)

// conn — одно соединение зрителя. Исходящий канал никогда не закрывается,
// writePump завершается через done; это снимает гонку send-после-close.
type conn struct {
	hub *Hub
	ws  *websocket.Conn

	out     chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func newConn(ws *websocket.Conn, h *Hub) *conn {
	return &conn{
		hub:     h,
		ws:      ws,
		out:     make(chan []byte, h.cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: h.newLimiter(),
	}
}

// trySend ставит кадр в очередь без блокировки. false — буфер полон,
// кадр выброшен, зритель догонит на следующем тике.
func (c *conn) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- payload:
		return true
	default:
		return false
	}
}

func (c *conn) sendEnvelope(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.hub.logger.Error("marshal envelope", zap.Error(err))
		return
	}
	c.trySend(payload)
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.shutdown()
				return
			}
		}
	}
}

// readPump обслуживает входящие конверты. Битый JSON — это ответ error,
// а не разрыв: консоль оператора не должна переподключаться из-за опечатки.
func (c *conn) readPump() {
	defer c.shutdown()
	c.ws.SetReadLimit(maxInboundSize)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Warn("viewer read error", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.sendEnvelope(Envelope{Type: TypeError, Message: "rate limit exceeded"})
			continue
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendEnvelope(Envelope{Type: TypeError, Message: "malformed message"})
			continue
		}

		switch env.Type {
		case TypePing:
			c.sendEnvelope(Envelope{Type: TypePong})
		case TypeRequestUpdate:
			view := c.hub.source.CurrentView()
			c.sendEnvelope(Envelope{Type: TypeDashboardUpdate, Data: &view})
		default:
			c.sendEnvelope(Envelope{Type: TypeError, Message: "unknown message type"})
		}
	}
}

// shutdown снимает соединение с учета и будит writePump.
func (c *conn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		c.ws.Close()
	})
}

// close шлет управляющий кадр закрытия и гасит соединение.
// WriteControl безопасен параллельно с writePump.
func (c *conn) close(code int, reason string) {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.shutdown()
}
