package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()
	c.StepExecuted("add_node")
	c.StepExecuted("add_node")
	c.StepSkipped("invalid_params")
	c.PlaybackStarted()
	c.PathLookup(true)
	c.PathLookup(false)
	c.PathLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.StepsExecuted.WithLabelValues("add_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StepsSkipped.WithLabelValues("invalid_params")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PlaybackRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.PathLookups.WithLabelValues("miss")))
}

func TestCollector_Independent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.PlaybackStarted()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PlaybackRuns))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.StepExecuted("reset")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `benzo_script_steps_executed_total{command="reset"} 1`)
}
