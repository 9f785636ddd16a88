package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/pkg/config"
	"github.com/aretw0/probe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	inspector, err := probe.New()
	require.NoError(t, err)
	return NewServer(inspector, opts...)
}

func TestInspect(t *testing.T) {
	handler := newTestServer(t).Routes()

	req := httptest.NewRequest("POST", "/inspect?name=cfg&stats=true", strings.NewReader(`{"b": 1, "a": [true, null]}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp InspectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cfg", resp.Root.Name)
	assert.Equal(t, domain.TypeArray, resp.Root.Type)
	require.Len(t, resp.Root.Children, 2)
	assert.Equal(t, "a", resp.Root.Children[0].Name)
	assert.Equal(t, "b", resp.Root.Children[1].Name)
	assert.Equal(t, "1", resp.Root.Children[1].Value)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 5, resp.Stats.Nodes)
	assert.Empty(t, resp.Diagnostics)
	assert.False(t, resp.Broken)
}

func TestInspectYAML(t *testing.T) {
	handler := newTestServer(t).Routes()

	req := httptest.NewRequest("POST", "/inspect?format=yaml", strings.NewReader(`"hello"`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	var resp InspectResponse
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "document", resp.Root.Name)
	assert.Equal(t, "hello", resp.Root.Value)
}

func TestInspectRejectsBadInput(t *testing.T) {
	handler := newTestServer(t, WithMaxBody(8)).Routes()

	for _, tc := range []struct {
		name, target, body string
	}{
		{"invalid json", "/inspect", `{"a":`},
		{"too large", "/inspect", `{"key": "a long value"}`},
		{"bad budget", "/inspect?budget=-1", `1`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("POST", tc.target, strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSettingsAndHealth(t *testing.T) {
	handler := newTestServer(t).Routes()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var s config.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 5, s.MaxLevel)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsMountedOnlyWhenConfigured(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(t).Routes().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("probe_up 1")) })
	w = httptest.NewRecorder()
	newTestServer(t, WithMetricsHandler(metrics)).Routes().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, "probe_up 1", w.Body.String())
}

func TestInspectBroadcastsDiffs(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Routes()

	ch, cancel := srv.Streams.Subscribe("s1")
	defer cancel()

	post := func(body string) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/inspect?session=s1", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	post(`{"port": 80}`)
	first := <-ch
	assert.Contains(t, first, `document[\"port\"]`)

	post(`{"port": 80}`)
	post(`{"port": 81}`)
	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(<-ch), &diff))
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, `document["port"]`, diff.Changes[0].Path)
	assert.Equal(t, "scalar float64 81", *diff.Changes[0].New)
}

func TestSessionSnapshotsAreBounded(t *testing.T) {
	srv := newTestServer(t, WithMaxSessions(2))
	handler := srv.Routes()

	for _, id := range []string{"a", "b", "b", "c"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/inspect?session="+id, strings.NewReader(`{"n": 1}`)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Len(t, srv.last, 2)
	assert.NotContains(t, srv.last, "a", "oldest session is forgotten")
	assert.Contains(t, srv.last, "b")
	assert.Contains(t, srv.last, "c")
	assert.Equal(t, 2, srv.order.Length())
}

func TestSubscribeEvents(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Routes()

	ctx, cancel := context.WithCancel(context.Background())
	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events?session=s2", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(wSub, reqSub)
		close(done)
	}()

	require.Eventually(t, func() bool {
		srv.Streams.mu.RLock()
		defer srv.Streams.mu.RUnlock()
		return len(srv.Streams.subscribers["s2"]) == 1
	}, time.Second, 10*time.Millisecond)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/inspect?session=s2", strings.NewReader(`{"foo":"bar"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	time.Sleep(100 * time.Millisecond) // Let the stream flush the diff
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `\"foo\"`)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/events", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
