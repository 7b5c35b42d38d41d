// Package main provides the prospect CLI entrypoint.
//
// Usage:
//
//	prospect [options] [target-binary]
//	prospect version
//
// Exit codes:
//   - 0: session ended or operator quit
//   - 1: failure to establish the debugger transport
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/prospect/cli/cmd"
	"github.com/justapithecus/prospect/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           cmd.AppName,
		Usage:          cmd.AppUsage,
		ArgsUsage:      "[target-binary]",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.RootFlags(),
		Action:         cmd.RootAction,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder
		// errors; this branch covers unexpected unwrapped errors.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() returns "exit status N"; skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
