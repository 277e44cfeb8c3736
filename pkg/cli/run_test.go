package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/htmlrunner/htmlrunner/pkg/browser"
	"github.com/htmlrunner/htmlrunner/pkg/config"
	"github.com/htmlrunner/htmlrunner/pkg/results"
	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

const testPageURL = "http://localhost/tests/login.html"

// fakeSession serves a fixed command table and answers accessors from
// fixed values
type fakeSession struct {
	current string
	rows    [][]string
	title   string
	text    string

	opened []string
	closed bool
}

func (s *fakeSession) CurrentURL(ctx context.Context) (string, error) {
	return s.current, nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.current = url
	return nil
}

func (s *fakeSession) PageSource(ctx context.Context) (string, error) {
	return "<html><table></table></html>", nil
}

func (s *fakeSession) Evaluate(ctx context.Context, script string, res any) error {
	data, err := json.Marshal(s.rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}

func (s *fakeSession) Open(ctx context.Context, url string) error {
	s.opened = append(s.opened, url)
	return nil
}

func (s *fakeSession) Click(ctx context.Context, locator string) error { return nil }

func (s *fakeSession) Type(ctx context.Context, locator, text string) error { return nil }

func (s *fakeSession) WaitForPageToLoad(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (s *fakeSession) Title(ctx context.Context) (string, error) { return s.title, nil }

func (s *fakeSession) Text(ctx context.Context, locator string) (string, error) {
	return s.text, nil
}

func (s *fakeSession) Value(ctx context.Context, locator string) (string, error) { return "", nil }

func (s *fakeSession) IsElementPresent(ctx context.Context, locator string) (bool, error) {
	return true, nil
}

func (s *fakeSession) BodyText(ctx context.Context) (string, error) { return s.text, nil }

func (s *fakeSession) Eval(ctx context.Context, script string) (string, error) { return "", nil }

func (s *fakeSession) Close() {
	s.closed = true
}

func fakeFactory(sess *fakeSession) sessionFactory {
	return func(ctx context.Context, opts browser.Options) (session, error) {
		return sess, nil
	}
}

func loginRows() [][]string {
	return [][]string{
		{"open", "/home", ""},
		{"assertTitle", "", "Home"},
		{"verifyText", "id=msg", "Welcome*"},
	}
}

func TestRunTest(t *testing.T) {
	tmpDir := t.TempDir()
	spec := config.New()
	spec.Metadata.Name = "login"
	spec.Config.Test = testPageURL
	spec.Config.Results.File = filepath.Join(tmpDir, "out", "results.json")
	spec.Config.MetricsFile = filepath.Join(tmpDir, "out", "htmlrunner.prom")

	sess := &fakeSession{rows: loginRows(), title: "Home", text: "Goodbye"}

	var events []runner.EventType
	outcome, err := runTest(context.Background(), spec, fakeFactory(sess), func(event runner.ProgressEvent) {
		events = append(events, event.Type)
	})
	if err != nil {
		t.Fatalf("runTest failed: %v", err)
	}

	if outcome.Passed {
		t.Error("outcome should fail when a verification fails")
	}
	if outcome.Name != "login" || outcome.URL != testPageURL || outcome.RunID == "" {
		t.Errorf("unexpected meta: %+v", outcome.Meta)
	}
	if len(outcome.Steps) != 3 {
		t.Fatalf("recorded %d steps, want 3", len(outcome.Steps))
	}
	if outcome.Steps[2].Status != runner.StatusError {
		t.Errorf("verifyText status = %s, want error", outcome.Steps[2].Status)
	}
	if !sess.closed {
		t.Error("session was not closed")
	}
	if len(sess.opened) != 1 || sess.opened[0] != "/home" {
		t.Errorf("opened = %v, want [/home]", sess.opened)
	}
	if len(events) == 0 || events[len(events)-1] != runner.EventTestComplete {
		t.Errorf("events = %v, want to end with %s", events, runner.EventTestComplete)
	}

	saved, err := results.Load(spec.Config.Results.File)
	if err != nil {
		t.Fatalf("failed to load saved results: %v", err)
	}
	if len(saved) != 1 || saved[0].RunID != outcome.RunID {
		t.Errorf("saved results do not hold the run outcome: %+v", saved)
	}

	metrics, err := os.ReadFile(spec.Config.MetricsFile)
	if err != nil {
		t.Fatalf("failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(metrics), `htmlrunner_tests_total{passed="false"} 1`) {
		t.Errorf("metrics file missing test counter:\n%s", metrics)
	}
}

func TestRunTestUnknownCommand(t *testing.T) {
	spec := config.New()
	spec.Config.Test = testPageURL
	spec.Config.Results.File = filepath.Join(t.TempDir(), "results.json")

	sess := &fakeSession{rows: [][]string{{"open", "/", ""}, {"dance", "", ""}}}

	_, err := runTest(context.Background(), spec, fakeFactory(sess), runner.NoopProgressCallback)
	if err == nil {
		t.Fatal("runTest should fail on an unknown command")
	}
	if len(sess.opened) != 0 {
		t.Errorf("no step should run before resolution fails, opened %v", sess.opened)
	}
	if _, statErr := os.Stat(spec.Config.Results.File); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("results file should not be written, stat error: %v", statErr)
	}
}

func TestRunTestSessionError(t *testing.T) {
	spec := config.New()
	spec.Config.Test = testPageURL

	factory := func(ctx context.Context, opts browser.Options) (session, error) {
		return nil, errors.New("chrome not found")
	}

	_, err := runTest(context.Background(), spec, factory, runner.NoopProgressCallback)
	if err == nil || !strings.Contains(err.Error(), "chrome not found") {
		t.Errorf("expected session error, got %v", err)
	}
}

func TestRunCommand(t *testing.T) {
	tests := map[string]struct {
		title     string
		text      string
		wantErr   error
		wantInOut string
	}{
		"passing test": {
			title:     "Home",
			text:      "Welcome back",
			wantInOut: `"passed": true`,
		},
		"failing test": {
			title:     "Home",
			text:      "Goodbye",
			wantErr:   errTestFailed,
			wantInOut: `"passed": false`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resultsFile := filepath.Join(t.TempDir(), "results.json")
			sess := &fakeSession{rows: loginRows(), title: tt.title, text: tt.text}

			cmd := newRunCmd(fakeFactory(sess))
			cmd.SetArgs([]string{"--url", testPageURL, "--results-file", resultsFile, "-o", "json"})

			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			err := cmd.Execute()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}

			if !strings.Contains(buf.String(), tt.wantInOut) {
				t.Errorf("output missing %q:\n%s", tt.wantInOut, buf.String())
			}
			if !strings.Contains(buf.String(), "Results saved to: "+resultsFile) {
				t.Errorf("output missing results file:\n%s", buf.String())
			}
		})
	}
}

func TestRunCommandConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "run.yaml")
	content := `kind: Run
metadata:
  name: from-file
config:
  test: http://localhost/tests/login.html
  maxSteps: 10
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	sess := &fakeSession{rows: [][]string{
		{"label", "top", ""},
		{"open", "/home", ""},
		{"gotoLabel", "top", ""},
	}}

	cmd := newRunCmd(fakeFactory(sess))
	cmd.SetArgs([]string{configFile, "--max-steps", "5"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	// the flag overrides the file, so the loop stops after five steps
	err := cmd.Execute()
	if !errors.Is(err, errTestFailed) {
		t.Fatalf("Execute() error = %v, want %v", err, errTestFailed)
	}
	if !strings.Contains(buf.String(), runner.ErrStepLimit.Error()) {
		t.Errorf("output missing step limit failure:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Steps: 4 successful, 0 errors, 1 failures") {
		t.Errorf("output should record five steps:\n%s", buf.String())
	}
	if len(sess.opened) != 2 {
		t.Errorf("opened %d times, want 2", len(sess.opened))
	}
}

func TestRunCommandInvalidInput(t *testing.T) {
	tests := map[string][]string{
		"missing test url":      {},
		"unknown output format": {"--url", testPageURL, "-o", "yaml"},
		"missing config file":   {"/nonexistent/run.yaml"},
		"relative base url":     {"--url", testPageURL, "--base-url", "localhost"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			sess := &fakeSession{rows: loginRows()}
			cmd := newRunCmd(fakeFactory(sess))
			cmd.SetArgs(args)

			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			if err := cmd.Execute(); err == nil {
				t.Error("expected an error")
			}
			if len(sess.opened) != 0 {
				t.Errorf("no step should run, opened %v", sess.opened)
			}
		})
	}
}

func TestDisplayTextOutcome(t *testing.T) {
	outcome := sampleOutcomes()[2]
	outcome.Duration = 1500 * time.Millisecond

	buf := new(bytes.Buffer)
	if err := displayOutcome(buf, outcome, "text"); err != nil {
		t.Fatalf("displayOutcome failed: %v", err)
	}

	for _, want := range []string{
		"Test: http://localhost/checkout.html",
		"Status: FAILED",
		"Reason: step 1 (verifyText): Actual value 'a' did not match 'b'",
		"Steps: 1 successful, 1 errors, 1 failures",
		"Duration: 1.5s",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}

	if err := displayOutcome(buf, outcome, "xml"); err == nil {
		t.Error("displayOutcome should reject unknown formats")
	}
}
