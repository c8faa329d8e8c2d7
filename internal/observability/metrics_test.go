package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderecap/coderecap/internal/summarize"
)

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics

	m.ObserveCall(summarize.StatusComputed, 100, 50, 0.01)
	m.ObserveCommits(10)
}

func TestMetricsScrape(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveCall(summarize.StatusComputed, 100, 50, 0.01)
	m.ObserveCall(summarize.StatusSkippedBudget, 0, 0, 0)
	m.ObserveCommits(42)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, recorder.Code)

	body := recorder.Body.String()
	assert.Contains(t, body, `coderecap_llm_calls_total{status="computed"} 1`)
	assert.Contains(t, body, `coderecap_llm_calls_total{status="budget-skipped"} 1`)
	assert.Contains(t, body, `coderecap_llm_tokens_total{direction="input"} 100`)
	assert.Contains(t, body, `coderecap_llm_tokens_total{direction="output"} 50`)
	assert.Contains(t, body, "coderecap_commits_extracted_total 42")
}

func TestIndependentRegistries(t *testing.T) {
	t.Parallel()

	// Two runs in one process must not collide on registration.
	first := NewMetrics()
	second := NewMetrics()

	first.ObserveCommits(1)
	second.ObserveCommits(2)

	recorder := httptest.NewRecorder()
	second.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	assert.Contains(t, recorder.Body.String(), "coderecap_commits_extracted_total 2")
}
