package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveJobSkipsDurationForSkipped(t *testing.T) {
	before := testutil.CollectAndCount(JobDuration, "ideaforge_job_duration_seconds")
	ObserveJob("metrics_test_job", "skipped", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(JobRuns.WithLabelValues("metrics_test_job", "skipped")))
	assert.Equal(t, before, testutil.CollectAndCount(JobDuration, "ideaforge_job_duration_seconds"))

	ObserveJob("metrics_test_job", "ok", 0.5)
	assert.Equal(t, before+1, testutil.CollectAndCount(JobDuration, "ideaforge_job_duration_seconds"))
}

func TestRecordIngestedIgnoresZero(t *testing.T) {
	before := testutil.CollectAndCount(ArticlesIngested)
	RecordIngested("metrics-test-source", 0)
	assert.Equal(t, before, testutil.CollectAndCount(ArticlesIngested))

	RecordIngested("metrics-test-source", 3)
	assert.Equal(t, before+1, testutil.CollectAndCount(ArticlesIngested))
	assert.Equal(t, 3.0, testutil.ToFloat64(ArticlesIngested.WithLabelValues("metrics-test-source")))
}
