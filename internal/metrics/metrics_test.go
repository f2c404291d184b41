package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	ResetForTesting()

	t.Run("returns a singleton", func(t *testing.T) {
		assert.Same(t, NewMetrics(), NewMetrics())
	})
}

func TestMetrics_Handler(t *testing.T) {
	ResetForTesting()
	m := NewMetrics()

	m.ObserveRun("complete", 42)
	m.ObserveCheck("terraform-required-files", true)
	m.ObserveCheck("report-canary-string", false)
	m.SetRegionUp("us-east-1", false)
	m.SetRegionUp("us-west-2", true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.True(t, strings.Contains(text, `regionguard_validation_runs_total{outcome="complete"} 1`))
	assert.True(t, strings.Contains(text, `regionguard_check_results_total{check="terraform-required-files",status="pass"} 1`))
	assert.True(t, strings.Contains(text, `regionguard_check_results_total{check="report-canary-string",status="fail"} 1`))
	assert.True(t, strings.Contains(text, `regionguard_region_up{region="us-east-1"} 0`))
	assert.True(t, strings.Contains(text, `regionguard_region_up{region="us-west-2"} 1`))
}
