package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

// staticSource отдает фиксированный снапшот дашборда.
type staticSource struct{ view domain.DashboardView }

func (s staticSource) CurrentView() domain.DashboardView { return s.view }

func testHub(t *testing.T, tick time.Duration) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(infra.BroadcastConfig{
		TickInterval: tick,
		SendBuffer:   16,
		InboundRate:  100,
		InboundBurst: 100,
	}, staticSource{view: domain.DashboardView{
		Network: domain.NetworkView{Throughput: 3.5},
	}}, zap.NewNop(), telemetry.NewMetrics(nil))

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func writeEnvelope(t *testing.T, ws *websocket.Conn, env Envelope) {
	t.Helper()
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, payload))
}

func TestHub_GreetingThenInitialSnapshot(t *testing.T) {
	_, srv := testHub(t, time.Hour)
	ws := dial(t, srv)

	first := readEnvelope(t, ws)
	assert.Equal(t, TypeConnected, first.Type)

	second := readEnvelope(t, ws)
	require.Equal(t, TypeDashboardUpdate, second.Type)
	require.NotNil(t, second.Data)
	assert.Equal(t, 3.5, second.Data.Network.Throughput)
}

func TestHub_PingPong(t *testing.T) {
	_, srv := testHub(t, time.Hour)
	ws := dial(t, srv)

	readEnvelope(t, ws) // connected
	readEnvelope(t, ws) // initial snapshot

	writeEnvelope(t, ws, Envelope{Type: TypePing})
	assert.Equal(t, TypePong, readEnvelope(t, ws).Type)
}

func TestHub_RequestUpdateOnDemand(t *testing.T) {
	_, srv := testHub(t, time.Hour)
	ws := dial(t, srv)

	readEnvelope(t, ws)
	readEnvelope(t, ws)

	writeEnvelope(t, ws, Envelope{Type: TypeRequestUpdate})
	env := readEnvelope(t, ws)
	require.Equal(t, TypeDashboardUpdate, env.Type)
	require.NotNil(t, env.Data)
}

func TestHub_MalformedMessageKeepsConnection(t *testing.T) {
	_, srv := testHub(t, time.Hour)
	ws := dial(t, srv)

	readEnvelope(t, ws)
	readEnvelope(t, ws)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, TypeError, readEnvelope(t, ws).Type)

	// Соединение живо
	writeEnvelope(t, ws, Envelope{Type: TypePing})
	assert.Equal(t, TypePong, readEnvelope(t, ws).Type)
}

func TestHub_UnknownTypeRejected(t *testing.T) {
	_, srv := testHub(t, time.Hour)
	ws := dial(t, srv)

	readEnvelope(t, ws)
	readEnvelope(t, ws)

	writeEnvelope(t, ws, Envelope{Type: "subscribe"})
	assert.Equal(t, TypeError, readEnvelope(t, ws).Type)
}

func TestHub_PeriodicBroadcast(t *testing.T) {
	hub, srv := testHub(t, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	ws := dial(t, srv)
	readEnvelope(t, ws) // connected
	readEnvelope(t, ws) // initial snapshot

	// Два тиковых кадра подряд без запросов с нашей стороны
	for i := 0; i < 2; i++ {
		env := readEnvelope(t, ws)
		require.Equal(t, TypeDashboardUpdate, env.Type)
		require.NotNil(t, env.Data)
	}
}
