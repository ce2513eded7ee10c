package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveQuery("mixed", OutcomeOK, 2*time.Second)
	m.ObserveQuery("mixed", OutcomeOK, time.Second)
	m.ObserveQuery("graph", OutcomeError, time.Second)
	m.ObserveQuery("nope", OutcomeUnknownIndex, 0)
	m.IndexBuild("2021", ActionBuilt)
	m.IndexBuild("mixed", ActionSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("mixed", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("nope", OutcomeUnknownIndex)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexBuilds.WithLabelValues("2021", ActionBuilt)))
	// unknown indexes get no histogram series
	assert.Equal(t, 2, testutil.CollectAndCount(m.queryDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `indexquery_queries_total{index="mixed",outcome="ok"} 2`)
	assert.Contains(t, string(body), "indexquery_index_builds_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("mixed", OutcomeOK, time.Second)
		m.IndexBuild("mixed", ActionLoaded)
	})
}
