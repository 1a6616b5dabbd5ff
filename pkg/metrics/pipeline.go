package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes of the upload orchestration pipeline.
type PipelineMetrics struct {
	stageDuration *prometheus.HistogramVec
	started       prometheus.Counter
	completed     prometheus.Counter
	failed        *prometheus.CounterVec
}

// NewPipelineMetrics registers the upload pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_stage_duration_seconds",
		Help:    "Duration of upload pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploads_started_total",
		Help: "Upload pipelines started.",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploads_completed_total",
		Help: "Upload pipelines that reached queued_for_transcoding.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_failed_total",
		Help: "Upload pipelines that ended in the failed state.",
	}, []string{"stage"})
	reg.MustRegister(stageDuration, started, completed, failed)
	return &PipelineMetrics{
		stageDuration: stageDuration,
		started:       started,
		completed:     completed,
		failed:        failed,
	}
}

// ObserveStage records the duration of the named stage.
func (p *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncStarted increments the started counter.
func (p *PipelineMetrics) IncStarted() {
	if p == nil || p.started == nil {
		return
	}
	p.started.Inc()
}

// IncCompleted increments the completed counter.
func (p *PipelineMetrics) IncCompleted() {
	if p == nil || p.completed == nil {
		return
	}
	p.completed.Inc()
}

// IncFailed increments the failure counter for the named stage.
func (p *PipelineMetrics) IncFailed(stage string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(stage)).Inc()
}

func normalizeLabel(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return stage
}
