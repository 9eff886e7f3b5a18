package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/motleylight/LogParser/internal/frame"
)

// Metrics contains all Prometheus metrics for the frame ingest service
type Metrics struct {
	// Frame extraction metrics
	FramesFound     prometheus.Counter
	TimeFramesFound prometheus.Counter
	InvalidSegments *prometheus.CounterVec
	BytesProcessed  prometheus.Counter
	PayloadSize     prometheus.Histogram

	// Connection metrics
	ActiveConnections prometheus.Gauge
	ConnectionsTotal  prometheus.Counter

	// Publish sink metrics
	FramesPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		FramesFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "framelog_frames_found_total",
			Help: "Total number of valid regular frames extracted",
		}),
		TimeFramesFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "framelog_time_frames_found_total",
			Help: "Total number of time frames extracted",
		}),
		InvalidSegments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "framelog_invalid_segments_total",
			Help: "Total number of invalid segments by failure reason",
		}, []string{"reason"}),
		BytesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "framelog_bytes_processed_total",
			Help: "Total number of stream bytes consumed by scanners",
		}),
		PayloadSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "framelog_frame_payload_bytes",
			Help:    "Payload size distribution of valid regular frames",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9), // 1B .. 64KB
		}),
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "framelog_active_connections",
			Help: "Current number of open ingest connections",
		}),
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "framelog_connections_total",
			Help: "Total number of ingest connections accepted",
		}),
		FramesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "framelog_frames_published_total",
			Help: "Total number of frames published to the sink",
		}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "framelog_publish_errors_total",
			Help: "Total number of failed sink publishes",
		}),
	}
}

// ObserveFrame records one classified frame.
func (m *Metrics) ObserveFrame(f frame.Frame) {
	switch f.Kind {
	case frame.KindRegular:
		m.FramesFound.Inc()
		m.PayloadSize.Observe(float64(len(f.Regular.Payload)))
	case frame.KindTime:
		m.TimeFramesFound.Inc()
	case frame.KindInvalid:
		m.InvalidSegments.WithLabelValues(f.Invalid.Reason.String()).Inc()
	}
	m.BytesProcessed.Add(float64(len(f.Raw)))
}
