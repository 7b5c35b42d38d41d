package script

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.gdb")
	content := `# startup script
file /bin/target

break main
  # indented comment
run
hexdump $PROSPECT_START_[heap] 256
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmds, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"file /bin/target",
		"break main",
		"run",
		"hexdump $PROSPECT_START_[heap] 256",
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("cmds = %v, want %v", cmds, want)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing script accepted")
	}
}
