package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type fixedReporter struct {
	ready bool
	parts []int32
}

func (f fixedReporter) Readiness() (bool, []int32) { return f.ready, f.parts }

func TestReadiness_Handler(t *testing.T) {
	ok := Check{Name: "redis", Fn: func(context.Context) error { return nil }}
	bad := Check{Name: "redis", Fn: func(context.Context) error { return errors.New("down") }}

	cases := []struct {
		name   string
		rr     ReadinessReporter
		checks []Check
		code   int
		body   string
	}{
		{"no reporter", nil, []Check{ok}, http.StatusOK, `"status":"ready"`},
		{"assigned", fixedReporter{true, []int32{0, 2}}, nil, http.StatusOK, `"partitions":[0,2]`},
		{"unassigned", fixedReporter{false, nil}, []Check{ok}, http.StatusServiceUnavailable, `"status":"not_ready"`},
		{"failed check", fixedReporter{true, []int32{0}}, []Check{bad}, http.StatusServiceUnavailable, `"failed":["redis"]`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		Readiness(tc.rr, tc.checks...)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != tc.code {
			t.Fatalf("%s: status=%d want %d", tc.name, rr.Code, tc.code)
		}
		if !strings.Contains(rr.Body.String(), tc.body) {
			t.Fatalf("%s: body=%s want %s", tc.name, rr.Body.String(), tc.body)
		}
	}
}
