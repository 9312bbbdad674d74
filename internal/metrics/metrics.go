package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mediaproc/internal/invocation"
)

const namespace = "mediaproc"

// Phase labels.
const (
	PhaseSync  = "sync"
	PhaseAsync = "async"
)

// Phase outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
	// OutcomeIncomplete marks a phase that succeeded but left declared artifacts missing.
	OutcomeIncomplete = "incomplete"
)

var phaseBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800}

// Recorder owns the collectors for one process.
type Recorder struct {
	registry    *prometheus.Registry
	phases      *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	invocations *prometheus.CounterVec
	fontRules   prometheus.Counter
	queueDepth  *prometheus.GaugeVec
}

// New builds a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		phases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_total",
			Help:      "Processing phases finished, by variant, phase, and outcome",
		}, []string{"variant", "phase", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of processing phases",
			Buckets:   phaseBuckets,
		}, []string{"variant", "phase"}),
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "External tool invocations, by tool and outcome",
		}, []string{"tool", "outcome"}),
		fontRules: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "font_rules_total",
			Help:      "@font-face rules written to extracted stylesheets",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_items",
			Help:      "Queue items by status at the last export",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObservePhase counts one finished phase and its duration.
func (r *Recorder) ObservePhase(variant, phase, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	variant = normalizeLabel(variant)
	phase = normalizeLabel(phase)
	r.phases.WithLabelValues(variant, phase, normalizeLabel(outcome)).Inc()
	r.durations.WithLabelValues(variant, phase).Observe(duration.Seconds())
}

// ObserveInvocation implements invocation.Observer.
func (r *Recorder) ObserveInvocation(tool string, outcome invocation.Outcome, _ time.Duration) {
	if r == nil {
		return
	}
	r.invocations.WithLabelValues(normalizeLabel(filepath.Base(tool)), normalizeLabel(string(outcome))).Inc()
}

// ObserveFontRules implements processor.Observer.
func (r *Recorder) ObserveFontRules(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.fontRules.Add(float64(count))
}

// SetQueueDepth replaces the per-status queue gauge.
func (r *Recorder) SetQueueDepth(counts map[string]int) {
	if r == nil {
		return
	}
	r.queueDepth.Reset()
	for status, count := range counts {
		r.queueDepth.WithLabelValues(normalizeLabel(status)).Set(float64(count))
	}
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically so a scraper never reads a partial export.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return errors.New("metrics: recorder is nil")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("metrics: textfile path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
