// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Upload results.
const (
	ResultSuccess       = "success"
	ResultRejected      = "rejected"
	ResultStoreFailure  = "store_failure"
	ResultError         = "error"
	ResultDeleted       = "deleted"
	ResultDeleteFailure = "failed"
)

// Recorder receives engine events.
type Recorder interface {
	UploadFinished(result string, size int64)
	RetentionDeletion(result string)
}

// Nop ignores every event.
type Nop struct{}

func (Nop) UploadFinished(string, int64) {}
func (Nop) RetentionDeletion(string)     {}

// Prometheus records engine events into a registry.
type Prometheus struct {
	uploads    *prometheus.CounterVec
	uploadSize prometheus.Histogram
	retention  *prometheus.CounterVec
}

// New registers the engine collectors on reg.
func New(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_uploads_total",
			Help: "Uploads handled by the versioning engine, by result.",
		}, []string{"result"}),
		uploadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docvault_upload_size_bytes",
			Help:    "Size of successfully stored uploads.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		retention: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_retention_deletions_total",
			Help: "Version deletions attempted by retention, by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{p.uploads, p.uploadSize, p.retention} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) UploadFinished(result string, size int64) {
	p.uploads.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		p.uploadSize.Observe(float64(size))
	}
}

func (p *Prometheus) RetentionDeletion(result string) {
	p.retention.WithLabelValues(result).Inc()
}
