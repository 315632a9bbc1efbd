package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	aegis "github.com/aegisauth/aegis"
)

type fakeSource struct {
	snapshot aegis.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() aegis.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                   { return f.dropped }

func scrape(t *testing.T, exp *Exporter) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestScrapeIncludesCounters(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: aegis.MetricsSnapshot{
			Counters: map[aegis.MetricID]uint64{
				aegis.MetricLoginSuccess:  7,
				aegis.MetricTokenRejected: 2,
			},
		},
		dropped: 3,
	})

	out := scrape(t, exp)
	if !strings.Contains(out, "aegis_login_success_total 7") {
		t.Fatalf("missing login_success counter:\n%s", out)
	}
	if !strings.Contains(out, "aegis_token_rejected_total 2") {
		t.Fatalf("missing token_rejected counter:\n%s", out)
	}
	if !strings.Contains(out, "aegis_audit_dropped_total 3") {
		t.Fatalf("missing audit_dropped counter:\n%s", out)
	}
}

func TestScrapeExposesEveryDefinedCounter(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: aegis.MetricsSnapshot{Counters: map[aegis.MetricID]uint64{}},
	})

	out := scrape(t, exp)
	for _, id := range aegis.MetricIDs() {
		name := "aegis_" + id.Name() + "_total"
		if !strings.Contains(out, name) {
			t.Fatalf("counter %s absent from scrape:\n%s", name, out)
		}
	}
}
