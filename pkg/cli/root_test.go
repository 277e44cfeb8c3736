package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"run", "commands", "view", "verify", "diff"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
}

func TestCommandsCommand(t *testing.T) {
	cmd := NewCommandsCmd()
	cmd.SetArgs([]string{})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("commands command failed: %v", err)
	}

	names := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for _, want := range []string{"open", "clickAndWait", "assertTitle", "verifyNotTextPresent", "storeEval", "gotoIf"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("commands output missing %q", want)
		}
	}
}
