// Package metrics exposes the producer's and processor's operational
// counters via a prometheus.Registry passed in explicitly by the caller —
// no reliance on prometheus's package-level default registry, so multiple
// producer/worker instances in the same test process never collide.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge the core emits.
type Metrics struct {
	TasksEnqueued   *prometheus.CounterVec
	TasksProcessed  *prometheus.CounterVec
	SweepDeletes    prometheus.Counter
	QueueDepth      prometheus.Gauge
	CopyBytesTotal  prometheus.Counter
	DiskReadBytes   prometheus.Gauge
	DiskWriteBytes  prometheus.Gauge
}

// New registers and returns a fresh Metrics bundle on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		TasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duptasks_enqueued_total",
			Help: "Duplication tasks enqueued by the producer.",
		}, []string{"account"}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duptasks_processed_total",
			Help: "Duplication tasks processed, by outcome.",
		}, []string{"outcome"}),
		SweepDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dupsweep_deletes_total",
			Help: "Delete tasks enqueued by the deletion sweep.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dupqueue_depth",
			Help: "Last-observed advisory TaskQueue depth.",
		}),
		CopyBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dupcopy_bytes_total",
			Help: "Bytes copied from source to destination by the processor.",
		}),
		DiskReadBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dupcopy_staging_disk_read_bytes",
			Help: "Cumulative bytes read from the local staging disk, sampled after a copy.",
		}),
		DiskWriteBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dupcopy_staging_disk_write_bytes",
			Help: "Cumulative bytes written to the local staging disk, sampled after a copy.",
		}),
	}
	reg.MustRegister(m.TasksEnqueued, m.TasksProcessed, m.SweepDeletes, m.QueueDepth, m.CopyBytesTotal, m.DiskReadBytes, m.DiskWriteBytes)
	return m
}

// Outcome labels for TasksProcessed.
const (
	OutcomeNoop      = "noop"
	OutcomeCopied    = "copied"
	OutcomeDeleted   = "deleted"
	OutcomePropsSet  = "props_set"
	OutcomeSpaceSync = "space_sync"
	OutcomeFatal     = "fatal"
)
