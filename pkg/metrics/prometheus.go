package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stages      *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	finalScores *prometheus.HistogramVec
	bands       *prometheus.CounterVec
	candles     *prometheus.CounterVec
}

// New registers the recorder's collectors with the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradescore_pipeline_stage_total",
				Help: "Messages reaching each pipeline stage",
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradescore_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradescore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		finalScores: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradescore_final_score",
				Help:    "Distribution of final 0-100 trade scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"strategy"},
		),
		bands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradescore_final_score_band_total",
				Help: "Scored trades per band of ten points",
			},
			[]string{"strategy", "band"},
		),
		candles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradescore_candles_ingested_total",
				Help: "Candles received from market data sources",
			},
			[]string{"source", "symbol"},
		),
	}
}

func (r *Recorder) RecordStage(stage string) {
	r.stages.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordScore(strategy string, final int) {
	r.finalScores.WithLabelValues(strategy).Observe(float64(final))
	band := final / 10 * 10
	if band > 90 {
		band = 90
	}
	if band < 0 {
		band = 0
	}
	r.bands.WithLabelValues(strategy, strconv.Itoa(band)).Inc()
}

func (r *Recorder) RecordCandle(source, symbol string) {
	r.candles.WithLabelValues(source, symbol).Inc()
}

// Nop discards everything. Used where metrics are optional.
type Nop struct{}

func (Nop) RecordStage(string)            {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordScore(string, int)       {}
func (Nop) RecordCandle(string, string)   {}
