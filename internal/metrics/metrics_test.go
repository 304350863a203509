package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_RecordTurn(t *testing.T) {
	m := New()
	m.RecordTurn("move", "ok", 0.7)
	m.RecordTurn("move", "ok", 0.4)
	m.RecordTurn("board", "error", 0.1)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `chessagent_turns_total{command="move",outcome="ok"} 2`)
	assert.Contains(t, body, `chessagent_turns_total{command="board",outcome="error"} 1`)
	assert.Contains(t, body, `chessagent_turn_duration_seconds_count{command="move"} 2`)
}

func TestMetrics_Deliveries(t *testing.T) {
	m := New()
	m.RecordDelivery("delivered")
	m.RecordHTTP("POST", "200")
	m.ObserveSearch(0.5)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `chessagent_webhook_deliveries_total{outcome="delivered"} 1`)
	assert.Contains(t, body, `chessagent_http_requests_total{method="POST",status="200"} 1`)
	assert.Contains(t, body, "chessagent_engine_search_seconds_count 1")
}

func TestMetrics_RegisterGauge(t *testing.T) {
	m := New()
	m.RegisterGauge("chessagent_engines_idle", "Idle engines.", func() float64 { return 3 })

	assert.Contains(t, getMetricsBody(t, m), "chessagent_engines_idle 3")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTurn("move", "ok", 1)
		m.ObserveSearch(1)
		m.RecordDelivery("failed")
		m.RecordHTTP("GET", "200")
		m.RegisterGauge("x", "y", func() float64 { return 0 })
	})
}
