package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

// createTestResultsFile creates a temporary results file for testing.
func createTestResultsFile(t *testing.T, outcomes []*TestOutcome) string {
	t.Helper()

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "results.json")

	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal results: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		t.Fatalf("failed to write results file: %v", err)
	}

	return filePath
}

// sampleOutcomes returns a set of sample outcomes for testing.
func sampleOutcomes() []*TestOutcome {
	return []*TestOutcome{
		{
			Meta:   Meta{RunID: "run-1", Name: "login", URL: "http://localhost/login.html"},
			Passed: true,
			Steps: []StepRecord{
				{Index: 0, Command: "open", Locator: "/", Status: runner.StatusSuccessful},
				{Index: 1, Command: "assertTitle", Value: "Home", Status: runner.StatusSuccessful},
			},
		},
		{
			Meta:   Meta{RunID: "run-2", Name: "search", URL: "http://localhost/search.html"},
			Passed: false,
			Steps: []StepRecord{
				{Index: 0, Command: "open", Locator: "/", Status: runner.StatusSuccessful},
				{Index: 1, Command: "verifyText", Locator: "id=q", Status: runner.StatusError, Error: "Actual value 'a' did not match 'b'"},
				{Index: 2, Command: "assertTitle", Status: runner.StatusSuccessful},
			},
		},
		{
			Meta:   Meta{RunID: "run-3", Name: "checkout", URL: "http://localhost/checkout.html"},
			Passed: false,
			Steps: []StepRecord{
				{Index: 0, Command: "click", Locator: "id=buy", Status: runner.StatusFailure, Error: "no such element"},
			},
		},
	}
}

func TestCalculateStats(t *testing.T) {
	outcomes := sampleOutcomes()

	stats := CalculateStats("test.json", outcomes)

	if stats.TestsTotal != 3 {
		t.Errorf("TestsTotal = %d, want 3", stats.TestsTotal)
	}

	if stats.TestsPassed != 1 {
		t.Errorf("TestsPassed = %d, want 1", stats.TestsPassed)
	}

	if stats.StepsTotal != 6 {
		t.Errorf("StepsTotal = %d, want 6", stats.StepsTotal)
	}

	if stats.StepsSuccessful != 4 || stats.StepsErrored != 1 || stats.StepsFailed != 1 {
		t.Errorf("steps = %d/%d/%d, want 4/1/1", stats.StepsSuccessful, stats.StepsErrored, stats.StepsFailed)
	}

	expectedRate := 1.0 / 3.0
	if stats.TestPassRate != expectedRate {
		t.Errorf("TestPassRate = %f, want %f", stats.TestPassRate, expectedRate)
	}
}

func TestCalculateStatsEmptyResults(t *testing.T) {
	stats := CalculateStats("empty.json", []*TestOutcome{})

	if stats.TestsTotal != 0 {
		t.Errorf("TestsTotal = %d, want 0", stats.TestsTotal)
	}

	if stats.TestPassRate != 0 {
		t.Errorf("TestPassRate = %f, want 0", stats.TestPassRate)
	}
}

func TestLoad(t *testing.T) {
	outcomes := sampleOutcomes()
	filePath := createTestResultsFile(t, outcomes)

	loaded, err := Load(filePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != len(outcomes) {
		t.Errorf("loaded %d results, want %d", len(loaded), len(outcomes))
	}

	if loaded[0].Name != "login" {
		t.Errorf("first test name = %s, want login", loaded[0].Name)
	}

	if loaded[1].Steps[1].Status != runner.StatusError {
		t.Errorf("status = %s, want error", loaded[1].Steps[1].Status)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/results.json")
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "invalid.json")

	if err := os.WriteFile(filePath, []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Load(filePath)
	if err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

func TestSaveToFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "nested", "dir", "results.json")

	if err := SaveToFile(filePath, sampleOutcomes()); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := Load(filePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 3 {
		t.Errorf("loaded %d results, want 3", len(loaded))
	}
}

func TestSaveToFileNil(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "results.json")

	if err := SaveToFile(filePath, nil); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}

	if string(data) != "[]" {
		t.Errorf("content = %s, want []", data)
	}
}

func TestFilter(t *testing.T) {
	outcomes := sampleOutcomes()

	tests := []struct {
		name     string
		filter   string
		expected int
	}{
		{"by name", "login", 1},
		{"case insensitive", "SEARCH", 1},
		{"by url", "checkout.html", 1},
		{"nonexistent test", "missing", 0},
		{"empty filter returns all", "", 3},
		{"partial match", "localhost", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := Filter(outcomes, tt.filter)
			if len(filtered) != tt.expected {
				t.Errorf("Filter(%q) returned %d results, want %d", tt.filter, len(filtered), tt.expected)
			}
		})
	}
}

func TestFailureReason(t *testing.T) {
	outcomes := sampleOutcomes()

	if got := FailureReason(outcomes[0]); got != "" {
		t.Errorf("FailureReason = %q, want empty", got)
	}

	want := "step 1 (verifyText): Actual value 'a' did not match 'b'"
	if got := FailureReason(outcomes[1]); got != want {
		t.Errorf("FailureReason = %q, want %q", got, want)
	}
}
