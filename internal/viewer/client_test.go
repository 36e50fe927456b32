package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/agisfl-core/internal/broadcast"
	"github.com/xela07ax/agisfl-core/internal/domain"
)

// statusRecorder потокобезопасно копит переходы состояний.
type statusRecorder struct {
	mu      sync.Mutex
	states  []State
	details []string
}

func (r *statusRecorder) record(s State, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	r.details = append(r.details, detail)
}

func (r *statusRecorder) count(want State) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == want {
			n++
		}
	}
	return n
}

func (r *statusRecorder) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_RetriesExhaustedIsTerminal(t *testing.T) {
	rec := &statusRecorder{}
	c := NewClient(Options{
		URL:         "ws://127.0.0.1:1/ws", // заведомо недоступен
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		OnStatus:    rec.record,
	})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)

	assert.Equal(t, 3, rec.count(StateBackoff))
	assert.Equal(t, StateClosed, rec.last())
	assert.Zero(t, rec.count(StateOpen))
}

func TestClient_BackoffDelayCapped(t *testing.T) {
	c := NewClient(Options{URL: "ws://x", BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 100})

	// 1s, 2s, 4s ... потолок 30s
	expected := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, want := range expected {
		delay := c.opts.BaseDelay << uint(i)
		if delay > c.opts.MaxDelay {
			delay = c.opts.MaxDelay
		}
		assert.Equal(t, want, delay, "attempt %d", i)
	}
}

func TestClient_NormalCloseNoRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		ws, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()

		// Съедаем request_update и закрываемся штатно
		ws.ReadMessage()
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		// Ждем ответный close кадр
		ws.ReadMessage()
	}))
	defer srv.Close()

	rec := &statusRecorder{}
	c := NewClient(Options{
		URL:       wsURL(srv),
		BaseDelay: time.Millisecond,
		OnStatus:  rec.record,
	})

	err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, rec.count(StateBackoff), "normal close must not trigger reconnect")
	assert.Equal(t, StateClosed, rec.last())
}

func TestClient_DeliversUpdatesAndResetsAttempts(t *testing.T) {
	view := domain.DashboardView{Network: domain.NetworkView{Throughput: 2.25}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		ws, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()

		ws.ReadMessage() // request_update
		payload, _ := json.Marshal(broadcast.Envelope{Type: broadcast.TypeDashboardUpdate, Data: &view})
		ws.WriteMessage(websocket.TextMessage, payload)
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ws.ReadMessage()
	}))
	defer srv.Close()

	got := make(chan domain.DashboardView, 1)
	c := NewClient(Options{
		URL:      wsURL(srv),
		OnUpdate: func(v domain.DashboardView) { got <- v },
	})

	require.NoError(t, c.Run(context.Background()))

	select {
	case v := <-got:
		assert.Equal(t, 2.25, v.Network.Throughput)
	default:
		t.Fatal("dashboard update not delivered")
	}
}

func TestClient_ContextCancelStops(t *testing.T) {
	rec := &statusRecorder{}
	c := NewClient(Options{
		URL:         "ws://127.0.0.1:1/ws",
		MaxAttempts: 100,
		BaseDelay:   50 * time.Millisecond,
		OnStatus:    rec.record,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
	assert.Equal(t, StateClosed, rec.last())
}
