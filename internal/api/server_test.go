package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/realtime"
	"github.com/JakeFAU/crawler-console/internal/state"
)

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	failing := NewServer(state.NewStores(nil), Options{
		Ready: func(context.Context) error { return errors.New("prefs store closed") },
	})
	rec = serve(failing, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "prefs store closed")
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	_ = serve(srv, "/healthz")
	rec := serve(srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_ListTasks(t *testing.T) {
	t.Parallel()

	stores := state.NewStores(nil)
	stores.Tasks.SetTasks([]crawler.Task{
		{ID: "a", Status: crawler.StatusRunning},
		{ID: "b", Status: crawler.StatusCompleted},
		{ID: "c", Status: crawler.StatusRunning},
	})
	stores.Tasks.SetActiveTaskID("c")
	srv := NewServer(stores, Options{Logger: zap.NewNop()})

	rec := serve(srv, "/v1/state/tasks?status=running&limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tasks        []crawler.Task `json:"tasks"`
		Total        int            `json:"total"`
		ActiveTaskID string         `json:"activeTaskId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	require.Len(t, body.Tasks, 1)
	require.Equal(t, "c", body.Tasks[0].ID)
	require.Equal(t, "c", body.ActiveTaskID)

	rec = serve(srv, "/v1/state/tasks?offset=10")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Tasks)
	require.Equal(t, 3, body.Total)
}

func TestServer_ListTasksBadQuery(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	for _, path := range []string{
		"/v1/state/tasks?status=sleeping",
		"/v1/state/tasks?limit=0",
		"/v1/state/tasks?limit=abc",
		"/v1/state/tasks?offset=-1",
	} {
		rec := serve(srv, path)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestServer_GetTask(t *testing.T) {
	t.Parallel()

	stores := state.NewStores(nil)
	stores.Tasks.AddTask(crawler.Task{ID: "t1", Status: crawler.StatusRunning})
	stores.Tasks.UpdateTaskProgress("t1", crawler.NewProgress(25, 50))
	srv := NewServer(stores, Options{})

	rec := serve(srv, "/v1/state/tasks/t1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Task     crawler.Task     `json:"task"`
		Progress crawler.Progress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "t1", body.Task.ID)
	require.Equal(t, 50, body.Progress.Percentage)

	rec = serve(srv, "/v1/state/tasks/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ContainerSnapshots(t *testing.T) {
	t.Parallel()

	stores := state.NewStores(nil)
	stores.Results.SetResults([]crawler.Result{{ID: "r1"}})
	stores.Results.SetSelected([]string{"r1"})
	stores.UI.SetTheme(state.ThemeDark)
	stores.Crawler.SetKeywords("test")
	srv := NewServer(stores, Options{})

	rec := serve(srv, "/v1/state/results")
	require.Equal(t, http.StatusOK, rec.Code)
	var results state.ResultSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Equal(t, []string{"r1"}, results.Selected)

	rec = serve(srv, "/v1/state/ui")
	require.Equal(t, http.StatusOK, rec.Code)
	var ui state.UISnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ui))
	require.Equal(t, state.ThemeDark, ui.Theme)

	rec = serve(srv, "/v1/state/crawler")
	require.Equal(t, http.StatusOK, rec.Code)
	var draft state.CrawlerSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	require.Equal(t, "test", draft.Keywords)
}

type fixedChannels map[string]realtime.State

func (f fixedChannels) States() map[string]realtime.State { return f }

func TestServer_Channels(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(), "/v1/state/channels")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"channels":{}}`, rec.Body.String())

	srv := NewServer(state.NewStores(nil), Options{Channels: fixedChannels{"t1": realtime.StateRetrying}})
	rec = serve(srv, "/v1/state/channels")
	require.JSONEq(t, `{"channels":{"t1":"closed-pending-retry"}}`, rec.Body.String())
}

func TestServer_MissingContainers(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, Options{})
	for _, path := range []string{"/v1/state/tasks", "/v1/state/tasks/t1", "/v1/state/results", "/v1/state/ui", "/v1/state/crawler"} {
		rec := serve(srv, path)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(), "/healthz")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rw.Hijack(); err == nil || err.Error() != "hijacker not supported" {
		t.Fatalf("expected unsupported hijacker error, got %v", err)
	}

	h := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: h}
	conn, buf, err := rw.Hijack()
	if err != nil {
		t.Fatalf("expected successful hijack, got %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close hijacked conn: %v", err)
	}
	if err := h.CloseClient(); err != nil {
		t.Fatalf("close hijacked client: %v", err)
	}
	if buf == nil {
		t.Fatal("expected buf to be non-nil")
	}
}

// --- helpers/fakes ---

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	h.client = client
	return server, bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)), nil
}

func (h *hijackableRecorder) CloseClient() error {
	if h.client != nil {
		if err := h.client.Close(); err != nil {
			return fmt.Errorf("close hijacker client: %w", err)
		}
	}
	return nil
}

func newTestServer() *Server {
	return NewServer(state.NewStores(nil), Options{Logger: zap.NewNop()})
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}
