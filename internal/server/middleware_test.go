package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vaultdoor/tests/testutil"
)

// newTestServer builds a Server with just the fields the middleware
// chain touches, skipping NewServer so no config or facade is needed.
func newTestServer(t *testing.T, origins ...string) (*Server, *testutil.CapturedLogger) {
	t.Helper()

	if len(origins) == 0 {
		origins = []string{"*"}
	}

	logs := testutil.NewCapturedLogger(t)
	return &Server{
		corsOrigins: origins,
		logger:      logs.Logger,
		metrics:     NewMetrics(),
	}, logs
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddlewareMintsID(t *testing.T) {
	s, _ := newTestServer(t)

	var seenInContext string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenInContext = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	s.requestIDMiddleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	assert.Len(t, id, 36, "minted IDs should be UUIDs")
	assert.Equal(t, id, seenInContext, "handler should see the same ID the client gets")
}

func TestRequestIDMiddlewarePreservesClientID(t *testing.T) {
	s, _ := newTestServer(t)

	var seenInContext string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenInContext = GetRequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-from-client")

	rec := httptest.NewRecorder()
	s.requestIDMiddleware(inner).ServeHTTP(rec, req)

	assert.Equal(t, "trace-from-client", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "trace-from-client", seenInContext)
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}

func TestCORSAllowAllOrigin(t *testing.T) {
	s, _ := newTestServer(t, "*")

	req := httptest.NewRequest(http.MethodGet, "/secrets/db-pass", nil)
	req.Header.Set("Origin", "http://example.com")

	rec := httptest.NewRecorder()
	s.corsMiddleware(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSEchoesConfiguredOrigin(t *testing.T) {
	s, _ := newTestServer(t, "http://localhost:3000", "https://ops.example.com")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")

	rec := httptest.NewRecorder()
	s.corsMiddleware(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	s, _ := newTestServer(t, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")

	rec := httptest.NewRecorder()
	s.corsMiddleware(okHandler()).ServeHTTP(rec, req)

	// The request still runs; the browser just gets no CORS grant.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	s, _ := newTestServer(t, "*")

	innerCalled := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerCalled = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/secrets", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	s.corsMiddleware(inner).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, innerCalled, "preflight must not reach the handler")
}

func TestCORSWithoutOriginHeader(t *testing.T) {
	s, _ := newTestServer(t, "*")

	rec := httptest.NewRecorder()
	s.corsMiddleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddlewareInfoLine(t *testing.T) {
	s, logs := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")

	rec := httptest.NewRecorder()
	s.requestIDMiddleware(s.loggingMiddleware(okHandler())).ServeHTTP(rec, req)

	require.Len(t, logs.Lines(), 1)
	logs.AssertLogCount(t, "info", 1)
	logs.AssertContains(t, "GET /health 200")
	logs.AssertContains(t, "request_id=req-123")
}

func TestLoggingMiddlewareWarnsOnClientError(t *testing.T) {
	s, logs := newTestServer(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	s.loggingMiddleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secrets/missing", nil))

	logs.AssertLogCount(t, "warn", 1)
	logs.AssertLogCount(t, "info", 0)
	logs.AssertContains(t, "GET /secrets/missing 404")
}

func TestLoggingMiddlewareErrorsOnServerError(t *testing.T) {
	s, logs := newTestServer(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	s.loggingMiddleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secrets", nil))

	logs.AssertLogCount(t, "error", 1)
	logs.AssertContains(t, "POST /secrets 500")
}

func TestRecoveryMiddlewareConvertsPanic(t *testing.T) {
	s, logs := newTestServer(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	s.recoveryMiddleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Detail)

	logs.AssertLogCount(t, "error", 1)
	logs.AssertContains(t, "panic serving GET /explode: boom")
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	s, _ := newTestServer(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	})

	rec := httptest.NewRecorder()
	s.metricsMiddleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secrets", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/secrets/db-password", "/secrets/{name}"},
		{"/secrets/a/b", "/secrets/{name}"},
		{"/secrets/", "/secrets/"},
		{"/secrets", "/secrets"},
		{"/api/secrets", "/api/secrets"},
		{"/health", "/health"},
		{"/", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path), "path %q", tt.path)
	}
}
