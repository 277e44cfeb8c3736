package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

// Stats holds computed statistics from test outcomes.
type Stats struct {
	ResultsFile     string  `json:"resultsFile,omitempty"`
	TestsTotal      int     `json:"testsTotal"`
	TestsPassed     int     `json:"testsPassed"`
	TestPassRate    float64 `json:"testPassRate"`
	StepsTotal      int     `json:"stepsTotal"`
	StepsSuccessful int     `json:"stepsSuccessful"`
	StepsErrored    int     `json:"stepsErrored"`
	StepsFailed     int     `json:"stepsFailed"`
}

// Load reads a JSON results file.
func Load(path string) ([]*TestOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var outcomes []*TestOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("failed to parse results JSON: %w", err)
	}

	return outcomes, nil
}

// SaveToFile writes outcomes as indented JSON, creating parent
// directories as needed.
func SaveToFile(path string, outcomes []*TestOutcome) error {
	if outcomes == nil {
		outcomes = []*TestOutcome{}
	}

	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	return nil
}

// Filter returns the outcomes whose name or url contains filter, ignoring
// case.
func Filter(outcomes []*TestOutcome, filter string) []*TestOutcome {
	if filter == "" {
		return outcomes
	}

	filter = strings.ToLower(filter)
	filtered := make([]*TestOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if strings.Contains(strings.ToLower(o.Name), filter) || strings.Contains(strings.ToLower(o.URL), filter) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// CalculateStats computes statistics from test outcomes.
func CalculateStats(resultsFile string, outcomes []*TestOutcome) Stats {
	stats := Stats{
		ResultsFile: resultsFile,
		TestsTotal:  len(outcomes),
	}

	for _, o := range outcomes {
		if o.Passed {
			stats.TestsPassed++
		}
		stats.StepsTotal += len(o.Steps)
		stats.StepsSuccessful += o.Count(runner.StatusSuccessful)
		stats.StepsErrored += o.Count(runner.StatusError)
		stats.StepsFailed += o.Count(runner.StatusFailure)
	}

	if stats.TestsTotal > 0 {
		stats.TestPassRate = float64(stats.TestsPassed) / float64(stats.TestsTotal)
	}

	return stats
}

// FailureReason returns the cause recorded for the first unsuccessful step.
func FailureReason(o *TestOutcome) string {
	for _, s := range o.Steps {
		if s.Status != runner.StatusSuccessful {
			return fmt.Sprintf("step %d (%s): %s", s.Index, s.Command, s.Error)
		}
	}
	return ""
}
