// Package metrics counts step and test outcomes in Prometheus form.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

const (
	namespace = "htmlrunner"
)

// Recorder is a sink that updates counters for every test it receives. It
// owns its registry so several recorders never collide.
type Recorder struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	tests        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	lastRun      prometheus.Gauge
}

var _ runner.Results = &Recorder{}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Executed steps by command and status.",
		}, []string{"command", "status"}),
		tests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Completed tests by outcome.",
		}, []string{"passed"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_test_timestamp_seconds",
			Help:      "Unix time the last test completed.",
		}),
	}

	r.registry.MustRegister(r.steps, r.tests, r.stepDuration, r.lastRun)
	return r
}

func (r *Recorder) AddTest(_ string, stepResults []runner.StepResult) {
	passed := true
	for _, res := range stepResults {
		status := res.Status()
		command := ""
		if res.Step != nil {
			command = res.Step.Command
		}

		r.steps.WithLabelValues(command, status.String()).Inc()
		r.stepDuration.WithLabelValues(status.String()).Observe(res.Duration.Seconds())

		if status != runner.StatusSuccessful {
			passed = false
		}
	}

	r.tests.WithLabelValues(strconv.FormatBool(passed)).Inc()
	r.lastRun.SetToCurrentTime()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
