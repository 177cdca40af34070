package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/riskbucket/internal/config"
	"github.com/aristath/riskbucket/internal/di"
	"github.com/aristath/riskbucket/internal/domain"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		DataDir:            t.TempDir(),
		Port:               8001,
		DevMode:            true,
		DefaultProfile:     "anonymous",
		DefaultBucketCash:  1000,
		DefaultAccountCash: 10000,
		StockSearchLimit:   4,
		SnapshotSchedule:   "0 22 * * 1-5",
	}
	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
}

func request(t *testing.T, handler http.Handler, method, path, profile, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if profile != "" {
		req.Header.Set(domain.ProfileHeader, profile)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	status, out := request(t, s.Handler(), http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "riskbucket", out["service"])
}

func TestSystemStatus(t *testing.T) {
	s := setupServer(t)

	status, out := request(t, s.Handler(), http.MethodGet, "/api/system/status", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, 3.0, out["scheduled_jobs"])

	databases := out["databases"].(map[string]interface{})
	require.Contains(t, databases, "universe")
	require.Contains(t, databases, "portfolio")
	assert.Equal(t, true, databases["portfolio"].(map[string]interface{})["healthy"])
}

func TestTriggerJob(t *testing.T) {
	s := setupServer(t)

	status, out := request(t, s.Handler(), http.MethodPost, "/api/system/jobs/wal_checkpoint", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", out["status"])

	status, _ = request(t, s.Handler(), http.MethodPost, "/api/system/jobs/bucket_value_snapshot", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = request(t, s.Handler(), http.MethodPost, "/api/system/jobs/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestModuleRoutesAreMounted(t *testing.T) {
	s := setupServer(t)
	h := s.Handler()

	status, _ := request(t, h, http.MethodGet, "/api/stocks?text=a", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = request(t, h, http.MethodGet, "/api/accounts", "alice", "")
	assert.Equal(t, http.StatusOK, status)

	status, out := request(t, h, http.MethodPost, "/api/composition/boundaries", "", `{"total":10,"chunks":[]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{0.0}, out["boundaries"])
}

func TestDefaultProfile(t *testing.T) {
	s := setupServer(t)
	h := s.Handler()

	status, bucket := request(t, h, http.MethodPost, "/api/buckets", "", `{"name":"Nobody's"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "anonymous", bucket["owner"])

	status, _ = request(t, h, http.MethodGet, "/api/buckets/"+bucket["id"].(string), "anonymous", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = request(t, h, http.MethodGet, "/api/buckets/"+bucket["id"].(string), "alice", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEventSocket(t *testing.T) {
	s := setupServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws?types=BUCKET_CREATED", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "connected", msg["type"])

	resp, err := http.Post(ts.URL+"/api/buckets", "application/json", strings.NewReader(`{"name":"Streamed"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "BUCKET_CREATED", msg["type"])
	assert.Equal(t, "buckets", msg["module"])
	assert.Equal(t, "Streamed", msg["data"].(map[string]interface{})["name"])
}
