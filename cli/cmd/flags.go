// Package cmd provides CLI commands for the prospect binary.
package cmd

import "github.com/urfave/cli/v2"

// Flags for the root dashboard command. Every flag has a config-file
// counterpart; flags win when both are set.
var (
	// GDBPathFlag overrides the debugger executable.
	GDBPathFlag = &cli.StringFlag{
		Name:  "gdb-path",
		Usage: "Path to the gdb executable",
	}

	// RemoteFlag connects to a remote MI endpoint instead of
	// spawning a local debugger.
	RemoteFlag = &cli.StringFlag{
		Name:    "remote",
		Aliases: []string{"r"},
		Usage:   "Remote MI endpoint (host:port)",
	}

	// PtrSizeFlag forces the pointer width.
	PtrSizeFlag = &cli.StringFlag{
		Name:  "ptr-size",
		Usage: "Pointer size: 32, 64 or auto",
		Value: "auto",
	}

	// CmdsFlag replays a command script at startup.
	CmdsFlag = &cli.StringFlag{
		Name:  "cmds",
		Usage: "Command script replayed before interactive input ('#' lines ignored)",
	}

	// LogPathFlag enables structured logging to a file.
	LogPathFlag = &cli.StringFlag{
		Name:  "log-path",
		Usage: "Write JSON logs to this file",
	}

	// ConfigFlag names a prospect.yaml with flag defaults.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"C"},
		Usage:   "Config file (prospect.yaml)",
	}

	// PlainFlag selects the line console over the dashboard.
	PlainFlag = &cli.BoolFlag{
		Name:  "plain",
		Usage: "Line-oriented console instead of the fullscreen dashboard",
	}
)

// RootFlags returns the flags of the dashboard command.
func RootFlags() []cli.Flag {
	return []cli.Flag{
		GDBPathFlag,
		RemoteFlag,
		PtrSizeFlag,
		CmdsFlag,
		LogPathFlag,
		ConfigFlag,
		PlainFlag,
	}
}
