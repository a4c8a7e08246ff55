package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDelivery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDelivery("pull_request", "opened", OutcomeProcessed)
	m.ObserveDelivery("pull_request", "opened", OutcomeProcessed)
	m.ObserveDelivery("issue_comment", "created", OutcomeSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("pull_request", "opened", OutcomeProcessed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("issue_comment", "created", OutcomeSkipped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("issue_comment", "created", OutcomeFailed)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDelivery("check_run", "completed", OutcomeProcessed)
		m.ObserveCheckRun("success")
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveCheckRun("neutral")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `commit_karma_github_check_runs_total{conclusion="neutral"} 1`)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		101: "1xx",
		200: "2xx",
		201: "2xx",
		304: "3xx",
		401: "4xx",
		404: "4xx",
		500: "5xx",
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusClass(code), "code %d", code)
	}
}
