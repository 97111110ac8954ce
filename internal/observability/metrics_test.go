package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
)

func TestMetricsHandlerExposesPurgeMetrics(t *testing.T) {
	metrics := NewMetrics()
	purgeMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	_ = purgeMetrics.Track("all").End(nil)
	purgeMetrics.AddDeleted("requestLogs", 3)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `odyssey_purge_runs_total{mode="all",status="success"} 1`) {
		t.Fatalf("expected purge run counter, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_purge_deleted_records_total{collection="requestLogs"} 3`) {
		t.Fatalf("expected deleted records counter, got: %s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go runtime collector, got: %s", body)
	}
}

func serveRoute(handler http.Handler, pattern string) *httptest.ResponseRecorder {
	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, pattern)
	req := httptest.NewRequest(http.MethodGet, pattern, nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := serveRoute(handler, "/test")
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metricsRR.Body.String()
	if !strings.Contains(body, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
	if strings.Contains(body, "odyssey_admin_denials_total{") {
		t.Fatalf("418 must not count as a denial, got: %s", body)
	}
}

func TestMetricsMiddlewareCountsDenials(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	serveRoute(handler, "/admin/logs/purge")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `odyssey_admin_denials_total{code="403",route="/admin/logs/purge"} 1`) {
		t.Fatalf("expected denial counter, got: %s", rr.Body.String())
	}
}
