package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewEmptyPathDiscards(t *testing.T) {
	l, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("dropped", map[string]any{"k": "v"})
	if err := l.Sync(); err != nil {
		t.Errorf("Sync: %v", err)
	}
}

func TestNewAppendsJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("command sent", map[string]any{"token": 1})
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{`"level":"info"`, `"message":"command sent"`, `"token":1`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log entry missing %s: %s", want, data)
		}
	}
}

func TestWithOutput(t *testing.T) {
	var buf bytes.Buffer
	base, _ := New("")
	l := base.WithOutput(&buf)

	l.Warn("stale token", map[string]any{"token": 7})
	l.Error("transport failed", nil)
	_ = l.Sync()

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "stale token") {
		t.Errorf("warn entry missing: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("error entry missing: %s", out)
	}
}

func TestSugaredLogger(t *testing.T) {
	var buf bytes.Buffer
	base, _ := New("")
	s := base.WithOutput(&buf).Sugar().With("component", "cli")

	s.Debugf("polling every %dms", 100)
	s.Infof("replaying %d commands", 3)
	s.Warnf("script command %q failed", "bogus")
	s.Errorf("exit code %d", 1)

	out := buf.String()
	for _, want := range []string{
		"polling every 100ms",
		"replaying 3 commands",
		`script command \"bogus\" failed`,
		"exit code 1",
		"component",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("sugared output missing %s: %s", want, out)
		}
	}
}
