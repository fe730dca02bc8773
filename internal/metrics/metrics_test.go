package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mind-engage/examhub/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	b, _ := io.ReadAll(rec.Body)
	return string(b)
}

func TestCountersExported(t *testing.T) {
	m := metrics.New()
	m.AttemptStarted()
	m.AttemptStarted()
	m.AttemptResumed()
	m.AnswersRecorded(3)
	m.AttemptSubmitted("manual", 0.5)
	m.AttemptSubmitted("timer", 1)
	m.TimersArmed(4)

	body := scrape(t, m)
	for _, want := range []string{
		"examhub_attempts_started_total 2",
		"examhub_attempts_resumed_total 1",
		"examhub_answers_recorded_total 3",
		`examhub_attempts_submitted_total{trigger="manual"} 1`,
		`examhub_attempts_submitted_total{trigger="timer"} 1`,
		"examhub_attempt_score_count 2",
		"examhub_timers_armed 4",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in scrape", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.AttemptStarted()
	m.AttemptSubmitted("manual", 1)
	m.TimersArmed(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil handler status = %d", rec.Code)
	}
}
