package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FrameDuration measures whole-frame paint time.
	FrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "casegraph_frame_duration_seconds",
		Help:    "Duration of one canvas frame paint",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.066, 0.1, 0.25},
	})

	// LabelDecisions counts placer outcomes by result.
	LabelDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegraph_label_decisions_total",
			Help: "Label placement decisions",
		},
		[]string{"outcome"}, // accepted, carried, rejected, evicted
	)

	// NodeSkips counts entities skipped during a frame.
	NodeSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegraph_entity_skips_total",
			Help: "Nodes or edges skipped while painting",
		},
		[]string{"reason"}, // no_position, panic
	)

	// CacheResets counts label-cache invalidations.
	CacheResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegraph_label_cache_resets_total",
			Help: "Label cache invalidations",
		},
		[]string{"cause"}, // zoom, graph, request
	)

	// VisibleNodes tracks the node count of the last frame.
	VisibleNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casegraph_nodes",
		Help: "Nodes in the rendered graph",
	})
)

// ObserveFrame records a frame in both the timing metric and the histogram.
func ObserveFrame(d time.Duration, nodes int) {
	if !enabled.Load() {
		return
	}
	FramePaint.Record(d)
	FrameDuration.Observe(d.Seconds())
	VisibleNodes.Set(float64(nodes))
}

// CountLabels adds one frame's placer tallies.
func CountLabels(accepted, carried, rejected, evicted int) {
	if !enabled.Load() {
		return
	}
	LabelDecisions.WithLabelValues("accepted").Add(float64(accepted))
	LabelDecisions.WithLabelValues("carried").Add(float64(carried))
	LabelDecisions.WithLabelValues("rejected").Add(float64(rejected))
	LabelDecisions.WithLabelValues("evicted").Add(float64(evicted))
}

// CountSkip records an entity skipped for reason.
func CountSkip(reason string) {
	if !enabled.Load() {
		return
	}
	NodeSkips.WithLabelValues(reason).Inc()
}

// CountReset records a label-cache reset.
func CountReset(cause string) {
	if !enabled.Load() {
		return
	}
	CacheResets.WithLabelValues(cause).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
