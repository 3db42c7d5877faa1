package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alertavivo/relay/internal/config"
	"github.com/alertavivo/relay/internal/domain"
	store "github.com/alertavivo/relay/internal/infra/db"
	"github.com/alertavivo/relay/internal/infra/metrics"
	"github.com/alertavivo/relay/internal/infra/whatsapp"
	"github.com/alertavivo/relay/internal/usecase"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const testVerifyToken = "s3cret"

type graphRecorder struct {
	*httptest.Server

	mu     sync.Mutex
	bodies []map[string]any
}

func newGraphRecorder(t *testing.T) *graphRecorder {
	g := &graphRecorder{}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		g.mu.Lock()
		g.bodies = append(g.bodies, body)
		g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	t.Cleanup(g.Close)
	return g
}

func (g *graphRecorder) Bodies() []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]map[string]any(nil), g.bodies...)
}

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	repo   *store.AlertRepository
	graph  *graphRecorder
	hub    *Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	conn, err := store.Open(config.Config{
		DBDriver:       "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "relay.db"),
		DBMaxIdleConns: 1,
		DBMaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(conn))

	repo := store.NewAlertRepository(conn)
	graph := newGraphRecorder(t)
	sender := whatsapp.NewClient(graph.URL, "109876", "graph-token", 5*time.Second, 0, logger)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(time.UTC, logger)
	go hub.Run(ctx)

	intake := usecase.NewIntakeUsecase(repo, sender, usecase.NewSuppressor(0, nil), nil, hub,
		"https://alertavivo.com.br/escuta", m, logger)
	report := usecase.NewReportUsecase(repo)
	health := func(ctx context.Context) error { return store.Ping(ctx, conn) }

	handlers := NewHandlers(intake, report, hub, health, m, testVerifyToken, 5*time.Second, time.UTC, logger)
	server := httptest.NewServer(NewRouter(handlers, registry, logger))

	t.Cleanup(func() {
		server.Close()
		cancel()
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &testEnv{server: server, db: conn, repo: repo, graph: graph, hub: hub}
}

func (e *testEnv) closeDB(t *testing.T) {
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func (e *testEnv) count(t *testing.T) int {
	alerts, err := e.repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	return len(alerts)
}

func deliver(t *testing.T, baseURL, body string) *http.Response {
	resp, err := http.Post(baseURL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func messagePayload(from, text string) string {
	return fmt.Sprintf(`{"entry":[{"changes":[{"value":{"messages":[{"from":%q,"text":{"body":%q}}]}}]}]}`, from, text)
}

func readBody(t *testing.T, resp *http.Response) string {
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestVerifyWebhook(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=xyz", http.StatusOK, "xyz"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=WRONG&hub.challenge=xyz", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=s3cret&hub.challenge=xyz", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(env.server.URL + "/webhook?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, readBody(t, resp))
		})
	}
}

func TestReceiveWebhookKeywordMatch(t *testing.T) {
	env := newTestEnv(t)

	resp := deliver(t, env.server.URL, messagePayload("5511999990000", "Preciso de AJUDA agora"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, readBody(t, resp))

	alerts, err := env.repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "5511999990000", alerts[0].Sender)
	assert.Equal(t, "preciso de ajuda agora", alerts[0].Message)
	assert.Equal(t, domain.StatusActive, alerts[0].Status)

	bodies := env.graph.Bodies()
	require.Len(t, bodies, 1)
	assert.Equal(t, "whatsapp", bodies[0]["messaging_product"])
	assert.Equal(t, "5511999990000", bodies[0]["to"])
	text := bodies[0]["text"].(map[string]any)["body"].(string)
	assert.Contains(t, text, "https://alertavivo.com.br/escuta/5511999990000")
}

func TestReceiveWebhookNoSideEffects(t *testing.T) {
	env := newTestEnv(t)

	payloads := []string{
		messagePayload("5511", "bom dia"),
		`{"entry":[{"changes":[{"value":{"statuses":[{"status":"sent"}]}}]}]}`,
		`{"entry":[]}`,
		`[]`,
	}
	for _, payload := range payloads {
		resp := deliver(t, env.server.URL, payload)
		assert.Equal(t, http.StatusOK, resp.StatusCode, payload)
	}

	assert.Zero(t, env.count(t))
	assert.Empty(t, env.graph.Bodies())
}

func TestReceiveWebhookInvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"entry":`, `null`, `42`, `"socorro"`, `true`, ``} {
		resp := deliver(t, env.server.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Empty(t, env.graph.Bodies())

	resp := deliver(t, env.server.URL, `[]`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReceiveWebhookStoreFailureStillReplies(t *testing.T) {
	env := newTestEnv(t)
	env.closeDB(t)

	resp := deliver(t, env.server.URL, messagePayload("5511", "socorro"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, env.graph.Bodies(), 1)
}

func TestAdminReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < usecase.ReportLimit+5; i++ {
		require.NoError(t, env.repo.Create(ctx, &domain.Alert{
			Sender:    fmt.Sprintf("55%011d", i),
			Message:   "socorro <script>",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	resp, err := http.Get(env.server.URL + "/admin")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html := readBody(t, resp)

	assert.Equal(t, usecase.ReportLimit, strings.Count(html, "<tr><td>"))
	assert.Contains(t, html, "socorro &lt;script&gt;")
	assert.Contains(t, html, "01/03/2026 13:44:00")

	newest := strings.Index(html, fmt.Sprintf("55%011d", usecase.ReportLimit+4))
	older := strings.Index(html, fmt.Sprintf("55%011d", usecase.ReportLimit+3))
	require.NotEqual(t, -1, newest)
	require.NotEqual(t, -1, older)
	assert.Less(t, newest, older)
	assert.NotContains(t, html, fmt.Sprintf("55%011d", 0))
}

func TestAdminReportStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.closeDB(t)

	resp, err := http.Get(env.server.URL + "/admin")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Erro ao carregar alertas\n", readBody(t, resp))
}

func TestAdminAlertsJSON(t *testing.T) {
	env := newTestEnv(t)
	deliver(t, env.server.URL, messagePayload("5511", "SOS"))

	resp, err := http.Get(env.server.URL + "/admin/alerts.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var views []alertView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "5511", views[0].Sender)
	assert.Equal(t, "sos", views[0].Message)

	one, err := http.Get(fmt.Sprintf("%s/admin/alerts/%d", env.server.URL, views[0].ID))
	require.NoError(t, err)
	defer one.Body.Close()
	assert.Equal(t, http.StatusOK, one.StatusCode)

	missing, err := http.Get(env.server.URL + "/admin/alerts/9999")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, err := http.Get(env.server.URL + "/admin/alerts/abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	deliver(t, env.server.URL, messagePayload("5511", "roubo"))

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	exposition := readBody(t, metricsResp)
	assert.Contains(t, exposition, "relay_alerts_recorded_total 1")
	assert.Contains(t, exposition, `relay_webhook_deliveries_total{outcome="alert"} 1`)

	env.closeDB(t)
	down, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer down.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, down.StatusCode)
}

func TestAdminFeedStreamsNewAlerts(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/admin/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	deliver(t, env.server.URL, messagePayload("5511", "acidente na via"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string    `json:"type"`
		Payload alertView `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "alert", msg.Type)
	assert.Equal(t, "5511", msg.Payload.Sender)
	assert.Equal(t, "acidente na via", msg.Payload.Message)
	assert.Equal(t, domain.StatusActive, msg.Payload.Status)
}
