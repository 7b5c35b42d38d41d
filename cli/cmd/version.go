package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/prospect/types"
)

// VersionCommand reports the binary version. commit is injected by
// the build.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "prospect %s (commit: %s)\n", types.Version, commit)
			return nil
		},
	}
}
