// Package metrics exposes upload and backup counters
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline outcomes.
type Metrics interface {
	IncUpload(result string)
	ObserveUploadDuration(seconds float64)
	IncBackup(kind, result string)
	IncResolution(strategy string)
	SetPendingRefreshes(n int)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUpload(string)              {}
func (Noop) ObserveUploadDuration(float64) {}
func (Noop) IncBackup(string, string)      {}
func (Noop) IncResolution(string)          {}
func (Noop) SetPendingRefreshes(int)       {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	uploads         *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	backups         *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	pendingRefreshes prometheus.Gauge
}

// NewProm registers the collectors on reg; nil means the default registerer.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Image uploads by result",
		}, []string{"result"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent uploading one image and minting its link",
			Buckets:   prometheus.DefBuckets,
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backup writes by kind (image, note) and result",
		}, []string{"kind", "result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Reference resolutions by winning strategy",
		}, []string{"strategy"}),
		pendingRefreshes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_backup_refreshes",
			Help:      "Debounced backup refreshes waiting to fire",
		}),
	}
	reg.MustRegister(p.uploads, p.uploadDuration, p.backups, p.resolutions, p.pendingRefreshes)
	return p
}

func (p *Prom) IncUpload(result string) {
	p.uploads.WithLabelValues(result).Inc()
}

func (p *Prom) ObserveUploadDuration(seconds float64) {
	p.uploadDuration.Observe(seconds)
}

func (p *Prom) IncBackup(kind, result string) {
	p.backups.WithLabelValues(kind, result).Inc()
}

func (p *Prom) IncResolution(strategy string) {
	p.resolutions.WithLabelValues(strategy).Inc()
}

func (p *Prom) SetPendingRefreshes(n int) {
	p.pendingRefreshes.Set(float64(n))
}
