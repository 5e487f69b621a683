// Package metrics はフレームソースと接続のメトリクスを prometheus 形式で公開する
package metrics

import (
	"net/http"

	"robocam/internal/camera"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "robocam"

// StatsSource は計数値のスナップショットを提供する
type StatsSource interface {
	Stats() camera.Stats
}

// Metrics はプロセスごとのメトリクス一式
// グローバルレジストリは使わない
type Metrics struct {
	registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveSessions  *prometheus.GaugeVec
	StreamFrames    prometheus.Counter
	StreamEnds      *prometheus.CounterVec
}

// New はメトリクスを作成し、source の計数値を収集対象に加える
func New(source StatsSource) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		RequestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds (streams included)",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120, 600},
			},
			[]string{"method", "path"},
		),
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of client sessions being served",
			},
			[]string{"capability"},
		),
		StreamFrames: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_frames_total",
				Help:      "Total number of frames written to stream clients",
			},
		),
		StreamEnds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_ends_total",
				Help:      "Number of terminated streams by reason",
			},
			[]string{"reason"},
		),
	}

	if source != nil {
		reg.MustRegister(newSourceCollector(source))
	}
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Registry はメトリクスのレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用のハンドラーを返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// sourceCollector は収集のたびにフレームソースの計数値を読み出す
type sourceCollector struct {
	source StatsSource

	acquired    *prometheus.Desc
	released    *prometheus.Desc
	failures    *prometheus.Desc
	violations  *prometheus.Desc
	drops       *prometheus.Desc
	outstanding *prometheus.Desc
}

func newSourceCollector(source StatsSource) *sourceCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "frame_source", name), help, nil, nil)
	}
	return &sourceCollector{
		source:      source,
		acquired:    desc("acquired_total", "Frame buffers leased"),
		released:    desc("released_total", "Frame buffers returned"),
		failures:    desc("failures_total", "Failed acquire attempts"),
		violations:  desc("violations_total", "Invalid releases such as double release"),
		drops:       desc("drops_total", "Frames discarded by the latest-frame policy"),
		outstanding: desc("outstanding", "Frame buffers currently leased"),
	}
}

func (c *sourceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.released
	ch <- c.failures
	ch <- c.violations
	ch <- c.drops
	ch <- c.outstanding
}

func (c *sourceCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.CounterValue, float64(st.Acquired))
	ch <- prometheus.MustNewConstMetric(c.released, prometheus.CounterValue, float64(st.Released))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures))
	ch <- prometheus.MustNewConstMetric(c.violations, prometheus.CounterValue, float64(st.Violations))
	ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(st.Drops))
	ch <- prometheus.MustNewConstMetric(c.outstanding, prometheus.GaugeValue, float64(st.Outstanding))
}
