package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xela07ax/agisfl-core/internal/broadcast"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"go.uber.org/zap"
)

// State — фаза жизненного цикла зрителя.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateBackoff    State = "backoff"
	StateClosed     State = "closed"
)

// ErrRetriesExhausted возвращается после исчерпания попыток переподключения.
var ErrRetriesExhausted = fmt.Errorf("viewer: max reconnect attempts exhausted")

// Options настраивает клиента-зрителя.
type Options struct {
	URL          string
	MaxAttempts  int           // попыток переподключения подряд, 0 -> 10
	BaseDelay    time.Duration // 0 -> 1s
	MaxDelay     time.Duration // 0 -> 30s
	PingInterval time.Duration // 0 -> 30s

	// OnUpdate вызывается на каждый dashboard_update. Синхронно из читающей
	// горутины: тяжелую обработку уводить к себе.
	OnUpdate func(domain.DashboardView)
	// OnStatus уведомляет о смене фазы. Опционален.
	OnStatus func(State, string)

	Dialer *websocket.Dialer
	Logger *zap.Logger
}

// Client — зритель с автоматическим переподключением.
// Счетчик попыток сбрасывается после каждого успешного подключения;
// задержка растет экспоненциально с потолком MaxDelay. Штатное закрытие
// со стороны сервера (код 1000) завершает клиента без повторов.
type Client struct {
	opts   Options
	logger *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 10
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{opts: opts, logger: logger.Named("viewer")}
}

// Run крутит цикл подключения до штатного закрытия, отмены контекста
// или исчерпания попыток.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0

	for {
		c.setStatus(StateConnecting, "connecting")

		ws, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				c.setStatus(StateClosed, "context cancelled")
				return ctx.Err()
			}
			c.logger.Warn("dial failed", zap.Error(err), zap.Int("attempt", attempt+1))
			if next, terminal := c.backoff(ctx, &attempt); terminal {
				return next
			}
			continue
		}

		// Успешное подключение обнуляет серию неудач
		attempt = 0
		c.setStatus(StateOpen, "connected")

		normal, err := c.session(ctx, ws)
		if ctx.Err() != nil {
			c.setStatus(StateClosed, "context cancelled")
			return ctx.Err()
		}
		if normal {
			c.setStatus(StateClosed, "server closed connection")
			return nil
		}
		c.logger.Warn("connection lost", zap.Error(err))
		if next, terminal := c.backoff(ctx, &attempt); terminal {
			return next
		}
	}
}

// backoff ждет экспоненциальную паузу. Возвращает terminal=true,
// когда попытки исчерпаны или контекст отменен.
func (c *Client) backoff(ctx context.Context, attempt *int) (error, bool) {
	if *attempt >= c.opts.MaxAttempts {
		c.setStatus(StateClosed, "max reconnect attempts reached")
		return ErrRetriesExhausted, true
	}

	delay := c.opts.BaseDelay << uint(*attempt)
	if delay > c.opts.MaxDelay {
		delay = c.opts.MaxDelay
	}
	*attempt++

	c.setStatus(StateBackoff, fmt.Sprintf("reconnecting in %s (attempt %d/%d)", delay, *attempt, c.opts.MaxAttempts))

	select {
	case <-ctx.Done():
		c.setStatus(StateClosed, "context cancelled")
		return ctx.Err(), true
	case <-time.After(delay):
		return nil, false
	}
}

// session обслуживает одно живое соединение: запрашивает свежий снапшот,
// пингует сервер и читает поток обновлений. normal=true при штатном
// закрытии (код 1000).
func (c *Client) session(ctx context.Context, ws *websocket.Conn) (normal bool, err error) {
	defer ws.Close()

	var writeMu sync.Mutex
	send := func(env broadcast.Envelope) error {
		payload, merr := json.Marshal(env)
		if merr != nil {
			return merr
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return ws.WriteMessage(websocket.TextMessage, payload)
	}

	if err := send(broadcast.Envelope{Type: broadcast.TypeRequestUpdate}); err != nil {
		return false, err
	}

	// Пинг и разрыв по отмене контекста живут в отдельной горутине:
	// читающий цикл будится через закрытие сокета.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ctx.Done():
				ws.Close()
				return
			case <-ticker.C:
				if err := send(broadcast.Envelope{Type: broadcast.TypePing}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, rerr
		}

		var env broadcast.Envelope
		if uerr := json.Unmarshal(raw, &env); uerr != nil {
			c.logger.Warn("malformed envelope from server", zap.Error(uerr))
			continue
		}

		switch env.Type {
		case broadcast.TypeDashboardUpdate:
			if env.Data != nil && c.opts.OnUpdate != nil {
				c.opts.OnUpdate(*env.Data)
			}
		case broadcast.TypeConnected, broadcast.TypePong:
			// служебные подтверждения
		case broadcast.TypeError:
			c.logger.Warn("server error envelope", zap.String("message", env.Message))
		}
	}
}

func (c *Client) setStatus(s State, detail string) {
	c.logger.Debug("state change", zap.String("state", string(s)), zap.String("detail", detail))
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(s, detail)
	}
}
