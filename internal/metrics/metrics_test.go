package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHelpersRegisterSamples(t *testing.T) {
	Init()

	ObserveEvent("created", "tagged")
	ObserveRemoteCall("createLabel", "ok", 20*time.Millisecond)
	ObserveRetryExhausted("setLabelsForHighlight")
	ObserveCompletionTokens(100, 40)
	ObserveHTTPRequest(http.MethodPost, "/v1/webhooks/events", http.StatusOK, 5*time.Millisecond)

	if got := testutil.ToFloat64(relayEventsTotal.WithLabelValues("created", "tagged")); got < 1 {
		t.Fatalf("expected event sample, got %v", got)
	}
	if got := testutil.ToFloat64(relayRemoteCallsTotal.WithLabelValues("createLabel", "ok")); got < 1 {
		t.Fatalf("expected remote call sample, got %v", got)
	}
	if got := testutil.ToFloat64(relayRetryExhaustedTotal.WithLabelValues("setLabelsForHighlight")); got < 1 {
		t.Fatalf("expected exhaustion sample, got %v", got)
	}
	if got := testutil.ToFloat64(relayCompletionTokensTotal.WithLabelValues("prompt")); got < 100 {
		t.Fatalf("expected prompt token sample, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveEvent("created", "noop")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "relay_events_total") {
		t.Fatalf("expected relay_events_total in metrics output")
	}
}
