package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, false, &buf)
			t.Cleanup(func() { Setup(false, false, nil) })

			if Verbose() != tt.verbose {
				t.Errorf("Verbose() = %v, want %v", Verbose(), tt.verbose)
			}

			Debug("cursor positioned")
			Warn("cleanup step failed")

			out := buf.String()
			if got := strings.Contains(out, "cursor positioned"); got != tt.wantDebug {
				t.Errorf("debug record emitted = %v, want %v: %q", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "cleanup step failed") {
				t.Errorf("warning record missing: %q", out)
			}
		})
	}
}

func TestSandbox_TagsRecords(t *testing.T) {
	var buf bytes.Buffer
	Setup(true, true, &buf)
	t.Cleanup(func() { Setup(false, false, nil) })

	log := Sandbox("fr0123abcde")
	log.Debug("releasing address block", "host", "10.233.0.1")
	Debug("unscoped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %q", len(lines), buf.String())
	}

	var scoped, plain map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &scoped); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &plain); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if scoped[SandboxKey] != "fr0123abcde" || scoped["host"] != "10.233.0.1" {
		t.Errorf("scoped record = %v", scoped)
	}
	if _, ok := plain[SandboxKey]; ok {
		t.Errorf("unscoped record carries %q: %v", SandboxKey, plain)
	}
}

func TestSandbox_FollowsSetup(t *testing.T) {
	var first, second bytes.Buffer
	Setup(false, false, &first)
	t.Cleanup(func() { Setup(false, false, nil) })

	Setup(false, false, &second)
	Sandbox("fr1").Warn("stop failed")

	if first.Len() != 0 {
		t.Errorf("record went to the replaced writer: %q", first.String())
	}
	if !strings.Contains(second.String(), "sandbox=fr1") {
		t.Errorf("record missing identity: %q", second.String())
	}
}

func TestUserOutput(t *testing.T) {
	var buf bytes.Buffer
	SetUserOutput(&buf)
	defer SetUserOutput(nil)

	UserSuccess("Destroyed sandbox %s", "fr1")
	UserWarning("failed to remove %s", "/var/lib/containers/fr1")
	UserError("command %s failed", "nix-env")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	want := []struct{ indicator, text string }{
		{"✓", "Destroyed sandbox fr1"},
		{"⚠", "failed to remove /var/lib/containers/fr1"},
		{"✗", "command nix-env failed"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), buf.String())
	}
	for i, w := range want {
		if !strings.Contains(lines[i], w.indicator) || !strings.HasSuffix(lines[i], w.text) {
			t.Errorf("line %d = %q, want %s ... %s", i, lines[i], w.indicator, w.text)
		}
	}
}
