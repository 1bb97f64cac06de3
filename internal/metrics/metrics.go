// Package metrics provides Prometheus collectors for the translation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tsuyaku"

const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeTimedOut = "timed_out"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	RevisionsReceived  *prometheus.CounterVec
	PhrasesEmitted     prometheus.Counter
	Translations       *prometheus.CounterVec
	TranslationLatency prometheus.Histogram
	Playbacks          *prometheus.CounterVec
	PlaybackLatency    prometheus.Histogram
	QueueDepth         *prometheus.GaugeVec
	StreamRestarts     *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RevisionsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revisions_received_total",
			Help:      "Transcript revisions received, by kind",
		}, []string{"kind"}),
		PhrasesEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phrases_emitted_total",
			Help:      "Phrases emitted by the segmenter",
		}),
		Translations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation calls, by outcome",
		}, []string{"outcome"}),
		TranslationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Translation provider latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		Playbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playbacks_total",
			Help:      "Playback calls, by outcome",
		}, []string{"outcome"}),
		PlaybackLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_duration_seconds",
			Help:      "Time from playback start to completion, error or timeout",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 12, 15, 30},
		}),
		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Items waiting in each pipeline queue",
		}, []string{"queue"}),
		StreamRestarts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_restarts_total",
			Help:      "Transcript stream restarts, by outcome",
		}, []string{"outcome"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "1 while a session is active",
		}),
	}
}

func (m *Metrics) RecordRevision(isFinal bool) {
	if m == nil {
		return
	}
	kind := "partial"
	if isFinal {
		kind = "final"
	}
	m.RevisionsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPhrases(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PhrasesEmitted.Add(float64(n))
}

func (m *Metrics) RecordTranslation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(outcome).Inc()
	m.TranslationLatency.Observe(seconds)
}

func (m *Metrics) RecordPlayback(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Playbacks.WithLabelValues(outcome).Inc()
	m.PlaybackLatency.Observe(seconds)
}

func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (m *Metrics) RecordStreamRestart(outcome string) {
	if m == nil {
		return
	}
	m.StreamRestarts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetSessionActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.SessionsActive.Set(1)
		return
	}
	m.SessionsActive.Set(0)
}
