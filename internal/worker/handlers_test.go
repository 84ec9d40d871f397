// Package worker provides the HTTP clustering service for clusterizer.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/clusterizer/internal/config"
	"github.com/thebtf/clusterizer/internal/runner"
	"github.com/thebtf/clusterizer/internal/worker/sse"
	"github.com/thebtf/clusterizer/pkg/models"
)

// testService creates a ready Service backed by the default configuration.
func testService(t *testing.T) *Service {
	t.Helper()

	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 1024
	cfg.Server.MaxRecords = 5
	svc := NewService("test-version", cfg, runner.New(nil))
	svc.ready.Store(true)
	return svc
}

func postCluster(t *testing.T, svc *Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/cluster", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleCluster(t *testing.T) {
	svc := testService(t)

	rec := postCluster(t, svc, `{"records": ["apple pie", "apple pi", "banana bread"], "ngram": 2, "trace": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Ngram)
	require.Len(t, report.Clusters, 2)
	assert.Equal(t, []string{"apple pie", "apple pi"}, report.Clusters[0].Members)
	assert.Len(t, report.Trace, 2)
}

func TestHandleCluster_PublishesRunEvent(t *testing.T) {
	svc := testService(t)
	stream := httptest.NewRecorder()
	_, err := svc.events.AddClient(stream)
	require.NoError(t, err)

	rec := postCluster(t, svc, `{"records": ["apple pie", "apple pi"], "ngram": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	body := stream.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "), body)
	var ev sse.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(body, "data: "))), &ev))
	assert.Equal(t, sse.EventRun, ev.Type)
	assert.Equal(t, report.RunID, ev.RunID)
	assert.Equal(t, 2, ev.Records)
	assert.Equal(t, 1, ev.Clusters)
}

func TestHandleCluster_MinSize(t *testing.T) {
	svc := testService(t)

	rec := postCluster(t, svc, `{"records": ["apple pie", "apple pi", "banana bread"], "ngram": 2, "min_size": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, 2, report.Clusters[0].Size)
}

func TestHandleCluster_EmptyRecords(t *testing.T) {
	svc := testService(t)

	rec := postCluster(t, svc, `{"records": []}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Clusters)
	assert.Equal(t, 0.5, report.Score)
}

func TestHandleCluster_TooManyRecords(t *testing.T) {
	svc := testService(t)

	rec := postCluster(t, svc, `{"records": ["a1", "b2", "c3", "d4", "e5", "f6"], "ngram": 2}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "6 exceeds limit of 5")

	rec = postCluster(t, svc, `{"records": ["a1", "b2", "c3", "d4", "e5"], "ngram": 2}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandleCluster_ConcurrencyLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxConcurrent = 1
	svc := NewService("test-version", cfg, runner.New(nil))
	svc.ready.Store(true)

	// Occupy the only slot with a request whose body never finishes.
	body, feed := io.Pipe()
	defer feed.Close()
	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		req := httptest.NewRequest(http.MethodPost, "/api/cluster", body)
		svc.Handler().ServeHTTP(httptest.NewRecorder(), req)
	}()
	_, err := feed.Write([]byte(`{"records": [`))
	require.NoError(t, err)

	rec := postCluster(t, svc, `{"records": ["a"]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	feed.Close()
	<-blocked
}

func TestHandleCluster_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed json", body: `{"records": [`, status: http.StatusBadRequest},
		{name: "zero ngram", body: `{"records": ["a"], "ngram": 0}`, status: http.StatusBadRequest},
		{name: "negative ngram", body: `{"records": ["a"], "ngram": -1}`, status: http.StatusBadRequest},
		{name: "unknown metric", body: `{"records": ["a"], "metric": "cosine"}`, status: http.StatusBadRequest},
		{name: "unknown cohesion", body: `{"records": ["a"], "cohesion": "median"}`, status: http.StatusBadRequest},
		{name: "baseline out of range", body: `{"records": ["a"], "baseline_score": 3}`, status: http.StatusBadRequest},
		{name: "negative min size", body: `{"records": ["a"], "min_size": -1}`, status: http.StatusBadRequest},
		{name: "body too large", body: `{"records": ["` + strings.Repeat("x", 2048) + `"]}`, status: http.StatusRequestEntityTooLarge},
	}

	svc := testService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCluster(t, svc, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var response map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.NotEmpty(t, response["error"])
		})
	}
}

func TestHandleCluster_NotReady(t *testing.T) {
	svc := testService(t)
	svc.ready.Store(false)

	rec := postCluster(t, svc, `{"records": ["a"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHealth_ReturnsVersion(t *testing.T) {
	svc := testService(t)
	svc.version = "test-version-1.2.3"

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	svc.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "ready", response["status"])
	assert.Equal(t, "test-version-1.2.3", response["version"])
}

func TestHandleVersion(t *testing.T) {
	svc := testService(t)
	svc.version = "v2.0.0-beta"

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()

	svc.handleVersion(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "v2.0.0-beta", response["version"])
}

func TestHandleReady(t *testing.T) {
	svc := testService(t)

	svc.ready.Store(false)
	rec := httptest.NewRecorder()
	svc.handleReady(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.ready.Store(true)
	rec = httptest.NewRecorder()
	svc.handleReady(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ready", response["status"])
}

func TestService_ServeAndShutdown(t *testing.T) {
	cfg := config.Default()
	svc := NewService("test", cfg, runner.New(nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/cluster"
	require.Eventually(t, func() bool { return svc.ready.Load() }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(url, "application/json", bytes.NewBufferString(`{"records": ["aaaa", "aaaa"], "ngram": 2}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report models.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"aaaa", "aaaa"}, report.Clusters[0].Members)
	assert.Equal(t, 1, report.Stats.Collisions)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not shut down")
	}
	assert.False(t, svc.ready.Load())
}
