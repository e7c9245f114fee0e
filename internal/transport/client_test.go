package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := Config{BaseURL: srv.URL + "/api/v1", Timeout: 2 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestGetDecodesEnvelopeAndSendsToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/crawler/task/abc", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"abc","name":"demo"}}`)
	}, func(cfg *Config) { cfg.Tokens = StaticToken("secret") })

	env, err := Get[item](context.Background(), c, "/crawler/task/abc", WithQueryInt("page", 2), WithQuery("status", ""))
	require.NoError(t, err)
	require.True(t, env.Success)
	require.Equal(t, item{ID: "abc", Name: "demo"}, env.Data)
}

func TestEscapedSlashStaysInsideSegment(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/crawler/task/a%2Fb", r.URL.EscapedPath())
		require.Equal(t, "/api/v1/crawler/task/a/b", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"a/b"}}`)
	})

	env, err := Get[item](context.Background(), c, "/crawler/task/a%2Fb")
	require.NoError(t, err)
	require.Equal(t, "a/b", env.Data.ID)
}

func TestEmptyTokenSendsNoAuthorization(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	}, func(cfg *Config) { cfg.Tokens = StaticToken("") })

	_, err := Get[json.RawMessage](context.Background(), c, "/crawler/platforms")
	require.NoError(t, err)
}

func TestPostSendsJSONBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, []string{"a", "b"}, got["taskIds"])
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"x"},"message":"deleted"}`)
	})

	env, err := Post[item](context.Background(), c, "/crawler/tasks/batch-delete", map[string][]string{"taskIds": {"a", "b"}})
	require.NoError(t, err)
	require.Equal(t, "deleted", env.Message)
}

func TestStatusErrorsAreCategorised(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     int
		body     string
		sentinel error
		category string
		message  string
	}{
		{http.StatusUnauthorized, `{"detail":"token expired"}`, ErrUnauthorized, "unauthorized", "token expired"},
		{http.StatusForbidden, `{"error":"no access"}`, ErrForbidden, "forbidden", "no access"},
		{http.StatusNotFound, `{"message":"Task not found"}`, ErrNotFound, "not_found", "Task not found"},
		{http.StatusInternalServerError, `boom`, ErrServer, "server", "boom"},
		{http.StatusBadGateway, ``, ErrServer, "server", ""},
		{http.StatusConflict, `{"detail":[{"msg":"bad"}]}`, ErrStatus, "status", `[{"msg":"bad"}]`},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			t.Parallel()
			core, logs := observer.New(zapcore.DebugLevel)
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			}, func(cfg *Config) { cfg.Logger = zap.New(core) })

			_, err := Delete[item](context.Background(), c, "/results/1")
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.sentinel))
			require.Equal(t, tt.category, Category(err))
			var se *StatusError
			require.True(t, errors.As(err, &se))
			require.Equal(t, tt.code, se.Code)
			require.Equal(t, http.MethodDelete, se.Method)
			require.Equal(t, "/results/1", se.Path)
			require.Equal(t, tt.message, se.Message)
			require.Equal(t, 1, logs.Len(), "one diagnostic per failed call")
		})
	}
}

func TestEnvelopeFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"data":null,"error":"quota exceeded"}`)
	})

	_, err := Get[item](context.Background(), c, "/statistics/summary")
	require.ErrorIs(t, err, ErrEnvelope)
	require.Equal(t, "quota exceeded", Message(err))
}

func TestMalformedEnvelope(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`not json`, `{"data":{}}`, `{"success":true,"data":"wrong-shape"}`} {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, body)
		})
		_, err := Get[item](context.Background(), c, "/results")
		require.ErrorIs(t, err, ErrDecode, body)
	}
}

func TestNetworkErrorDistinctFromStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url + "/api/v1", Timeout: time.Second})
	require.NoError(t, err)
	_, err = Get[item](context.Background(), c, "/results")
	require.ErrorIs(t, err, ErrNetwork)
	var se *StatusError
	require.False(t, errors.As(err, &se))
}

func TestRequestBuildErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent")
	})

	_, err := Post[item](context.Background(), c, "/crawler/start", map[string]any{"bad": make(chan int)})
	require.ErrorIs(t, err, ErrRequestBuild)

	_, err = Get[item](context.Background(), c, "relative")
	require.ErrorIs(t, err, ErrRequestBuild)

	failing := TokenFunc(func(context.Context) (string, error) { return "", errors.New("prefs closed") })
	c2 := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent")
	}, func(cfg *Config) { cfg.Tokens = failing })
	_, err = Get[item](context.Background(), c2, "/results")
	require.ErrorIs(t, err, ErrRequestBuild)
	require.Equal(t, "request", Category(err))
}

func TestRawReturnsBodyAndFilename(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
		_, _ = io.WriteString(w, "id,title\n1,hello\n")
	})

	raw, err := c.Raw(context.Background(), http.MethodGet, "/results/export", WithQuery("format", "csv"))
	require.NoError(t, err)
	require.Equal(t, "text/csv", raw.ContentType)
	require.Equal(t, "results.csv", raw.Filename)
	require.Equal(t, "id,title\n1,hello\n", string(raw.Data))
}

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
	_, err = New(Config{BaseURL: "ftp://example.com"})
	require.Error(t, err)
	c, err := New(Config{BaseURL: "http://localhost:8000/api/v1/"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", c.BaseURL())
}

func TestContextCancellationIsNetworkError(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { <-block })
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Get[item](ctx, c, "/results")
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeLimiter struct {
	urls []string
	err  error
}

func (l *fakeLimiter) Wait(_ context.Context, url string) error {
	l.urls = append(l.urls, url)
	return l.err
}

func TestLimiterGatesRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	limiter := &fakeLimiter{}
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	}, func(cfg *Config) { cfg.Limiter = limiter })

	_, err := Get[any](context.Background(), c, "/results")
	require.NoError(t, err)
	require.Len(t, limiter.urls, 1)
	require.Contains(t, limiter.urls[0], "/api/v1/results")

	limiter.err = context.DeadlineExceeded
	_, err = Get[any](context.Background(), c, "/results")
	require.ErrorIs(t, err, ErrNetwork)
	require.EqualValues(t, 1, calls.Load())
}

func TestRequestsAreTraced(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("traceparent"))
		if r.URL.Path == "/api/v1/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	}, func(cfg *Config) { cfg.Tracer = tp.Tracer("test") })

	_, err := Get[any](context.Background(), c, "/crawler/tasks")
	require.NoError(t, err)
	_, err = Get[any](context.Background(), c, "/missing")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "GET /crawler/tasks", spans[0].Name())
	require.Equal(t, codes.Unset, spans[0].Status().Code)
	require.Equal(t, "GET /missing", spans[1].Name())
	require.Equal(t, codes.Error, spans[1].Status().Code)
}
