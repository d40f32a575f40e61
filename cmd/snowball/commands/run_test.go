package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()

	cmd := NewRunCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{
		"--datadir", dir,
		"--log", "error",
		"--nodes", "8",
		"--txs", "3",
		"--payload", "9",
		"--inject-node", "2",
		"--wire-encoding",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 3 transaction lines and a summary, got %q", out.String())
	}
	for _, l := range lines[:3] {
		if !strings.Contains(l, "0 Valid") || !strings.Contains(l, "local=Invalid") {
			t.Fatalf("payload 9 should be decided Invalid everywhere: %s", l)
		}
	}
}

func TestPeersCmd(t *testing.T) {
	dir := t.TempDir()

	cmd := NewPeersCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--datadir", dir, "--nodes", "5"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	// A second run refuses to overwrite the file.
	cmd = NewPeersCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--datadir", dir, "--nodes", "5"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("existing peers.json should not be overwritten")
	}
}
