package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(reg)
	require.NoError(t, err)

	p.UploadFinished(ResultSuccess, 2048)
	p.UploadFinished(ResultSuccess, 10)
	p.UploadFinished(ResultRejected, 0)
	p.RetentionDeletion(ResultDeleted)
	p.RetentionDeletion(ResultDeleteFailure)
	p.RetentionDeletion(ResultDeleted)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.uploads.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.uploads.WithLabelValues(ResultRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.retention.WithLabelValues(ResultDeleted)))
	assert.Equal(t, 1, testutil.CollectAndCount(p.uploadSize))

	_, err = New(reg)
	assert.Error(t, err, "second registration on the same registry must fail")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.UploadFinished(ResultError, 1)
	r.RetentionDeletion(ResultDeleted)
}
