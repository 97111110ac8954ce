package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	_ "github.com/odyssey-erp/odyssey-admin/testing"
)

func TestRouterHealthz(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{}, Metrics: observability.NewMetrics()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRouterUnknownRouteUsesEnvelope(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/logs/purge", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"ok":false,"error":{"code":"not-found","message":"no route for POST /admin/logs/purge"}}`, rr.Body.String())
}

func TestRouterServesMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Config: &Config{}, Metrics: metrics})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `route="/healthz"`))
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json"}, &buf).Info("hello", slog.String("k", "v"))
	assert.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
