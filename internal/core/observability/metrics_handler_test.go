package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandler_Smoke(t *testing.T) {
	ObserveHTTP("GET", "/search", 200, 0.001)

	body := scrape(t)
	if !strings.Contains(body, "go_goroutines") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestSyncLayerMetrics_Labels(t *testing.T) {
	IncNavigation("filter", "noop")
	IncKeywordSchedule("short_timeout")
	IncPanelTransition("cancel")
	IncMapSettle("off_page")
	IncSearchCache("lru")
	ObserveCacheOp("get", errors.New("boom"), 0.001)
	ObserveUpstreamLatency("listings", nil, 0.02)

	body := scrape(t)
	for _, want := range []string{
		`search_navigations_total{outcome="noop",source="filter"}`,
		`keyword_schedules_total{policy="short_timeout"}`,
		`filter_panel_transitions_total{event="cancel"}`,
		`map_settle_events_total{outcome="off_page"}`,
		`search_cache_results_total{tier="lru"}`,
		`cache_op_total{op="get",result="error"}`,
		`upstream_latency_seconds_bucket{outcome="ok",upstream="listings"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in:\n%s", want, body)
		}
	}
}
