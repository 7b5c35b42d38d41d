// Package script loads startup command files replayed into the
// session before interactive input begins.
package script

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/justapithecus/prospect/iox"
)

// Load reads the command script at path. Blank lines and lines whose
// first non-space character is '#' are skipped; everything else is
// replayed verbatim, in file order.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("script: open %s: %w", path, err)
	}
	defer iox.DiscardClose(f)

	var cmds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	return cmds, nil
}
