package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/htmlrunner/htmlrunner/pkg/results"
	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"unlimited", 0, "unlimited"},
	}

	for _, tt := range tests {
		if got := truncateString(tt.input, tt.max); got != tt.expected {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
		}
	}
}

func TestIndentBlock(t *testing.T) {
	got := indentBlock("<table>\n<tr></tr>\n</table>", "  ")
	expected := "  <table>\n  <tr></tr>\n  </table>"
	if got != expected {
		t.Errorf("indentBlock() = %q, want %q", got, expected)
	}
}

func TestFormatStep(t *testing.T) {
	got := formatStep(results.StepRecord{Index: 2, Command: "type", Locator: "id=q", Value: "go"})
	expected := "[2] |type | id=q | go |"
	if got != expected {
		t.Errorf("formatStep() = %q, want %q", got, expected)
	}
}

func TestViewCommand(t *testing.T) {
	outcomes := sampleOutcomes()
	outcomes[2].RawSource = "<html>\n<table></table>\n</html>"
	filePath := createTestResultsFile(t, outcomes)

	cmd := NewViewCmd()
	cmd.SetArgs([]string{filePath, "--test", "CHECKOUT", "--source"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("view command failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Test: checkout",
		"Status: FAILED",
		"✓ [0] |open |  |  |",
		"error: Actual value 'a' did not match 'b'",
		"failure: no such element",
		"Source:",
		"    <table></table>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	if strings.Contains(output, "login") {
		t.Errorf("filtered output should not contain other tests:\n%s", output)
	}
}

func TestViewCommandNoMatch(t *testing.T) {
	filePath := createTestResultsFile(t, sampleOutcomes())

	cmd := NewViewCmd()
	cmd.SetArgs([]string{filePath, "--test", "nothing"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := cmd.Execute(); err == nil {
		t.Error("view command should fail when no test matches")
	}
}

func TestViewCommandEmptyFile(t *testing.T) {
	filePath := createTestResultsFile(t, []*results.TestOutcome{})

	cmd := NewViewCmd()
	cmd.SetArgs([]string{filePath})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := cmd.Execute(); err == nil {
		t.Error("view command should fail without tests")
	}
}

func TestViewCommandMaxLineLength(t *testing.T) {
	filePath := createTestResultsFile(t, []*results.TestOutcome{
		{
			Meta:   results.Meta{URL: "http://localhost/long.html"},
			Passed: true,
			Steps: []results.StepRecord{
				{Index: 0, Command: "type", Locator: "id=q", Value: strings.Repeat("x", 50), Status: runner.StatusSuccessful},
			},
		},
	})

	cmd := NewViewCmd()
	cmd.SetArgs([]string{filePath, "--max-line-length", "20"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("view command failed: %v", err)
	}

	if !strings.Contains(buf.String(), "✓ [0] |type | id=q ...\n") {
		t.Errorf("step line should be truncated:\n%s", buf.String())
	}
}
