// Package results records, stores and publishes the outcomes of test runs.
package results

import (
	"sync"
	"time"

	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

// Meta identifies the run an outcome belongs to.
type Meta struct {
	RunID string `json:"runId"`
	Name  string `json:"name,omitempty"`
	URL   string `json:"url"`
}

// TestOutcome is the serializable result of one test.
type TestOutcome struct {
	Meta      `json:",inline"`
	Passed    bool          `json:"passed"`
	Steps     []StepRecord  `json:"steps"`
	RawSource string        `json:"rawSource,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

type StepRecord struct {
	Index    int           `json:"index"`
	Command  string        `json:"command"`
	Locator  string        `json:"locator,omitempty"`
	Value    string        `json:"value,omitempty"`
	Status   runner.Status `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// NewOutcome converts the results handed to a sink. A test passes when
// every recorded step was successful.
func NewOutcome(meta Meta, rawSource string, stepResults []runner.StepResult) *TestOutcome {
	outcome := &TestOutcome{
		Meta:      meta,
		Passed:    true,
		Steps:     make([]StepRecord, 0, len(stepResults)),
		RawSource: rawSource,
		Timestamp: time.Now(),
	}

	for _, r := range stepResults {
		record := StepRecord{
			Status:   r.Status(),
			Duration: r.Duration,
		}
		if r.Step != nil {
			record.Index = r.Step.Index
			record.Command = r.Step.Command
			record.Locator = r.Step.Locator
			record.Value = r.Step.Value
		}
		if cause := r.Cause(); cause != nil {
			record.Error = cause.Error()
		}
		if !r.IsSuccessful() {
			outcome.Passed = false
		}

		outcome.Duration += r.Duration
		outcome.Steps = append(outcome.Steps, record)
	}

	return outcome
}

// Count returns how many steps ended with status.
func (o *TestOutcome) Count(status runner.Status) int {
	n := 0
	for _, s := range o.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Recorder is a sink that keeps every outcome in memory.
type Recorder struct {
	meta Meta

	mu       sync.Mutex
	outcomes []*TestOutcome
}

var _ runner.Results = &Recorder{}

func NewRecorder(meta Meta) *Recorder {
	return &Recorder{meta: meta}
}

func (r *Recorder) AddTest(rawSource string, stepResults []runner.StepResult) {
	outcome := NewOutcome(r.meta, rawSource, stepResults)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *Recorder) Outcomes() []*TestOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*TestOutcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Last returns the most recent outcome, or nil.
func (r *Recorder) Last() *TestOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.outcomes) == 0 {
		return nil
	}
	return r.outcomes[len(r.outcomes)-1]
}

// Tee forwards every test to all of its sinks in order.
type Tee []runner.Results

var _ runner.Results = Tee{}

func (t Tee) AddTest(rawSource string, stepResults []runner.StepResult) {
	for _, sink := range t {
		sink.AddTest(rawSource, stepResults)
	}
}
