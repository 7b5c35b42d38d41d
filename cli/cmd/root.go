package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/prospect/cli/config"
	"github.com/justapithecus/prospect/cli/plain"
	"github.com/justapithecus/prospect/cli/script"
	"github.com/justapithecus/prospect/cli/tui"
	"github.com/justapithecus/prospect/log"
	"github.com/justapithecus/prospect/metrics"
	"github.com/justapithecus/prospect/session"
	"github.com/justapithecus/prospect/transport"
	"github.com/justapithecus/prospect/types"
)

// options is the flag/config merge the dashboard starts from.
type options struct {
	GDBPath string
	Remote  string
	PtrSize types.PtrSize
	Cmds    string
	LogPath string
	Plain   bool
	Target  string
}

// resolveOptions merges config-file defaults under CLI flags.
func resolveOptions(c *cli.Context) (options, error) {
	var cfg config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return options{}, err
		}
		cfg = *loaded
	}

	opts := options{
		GDBPath: cfg.GDBPath,
		Remote:  cfg.Remote,
		Cmds:    cfg.Cmds,
		LogPath: cfg.LogPath,
		Plain:   c.Bool("plain"),
		Target:  c.Args().First(),
	}
	if v := c.String("gdb-path"); v != "" {
		opts.GDBPath = v
	}
	if v := c.String("remote"); v != "" {
		opts.Remote = v
	}
	if v := c.String("cmds"); v != "" {
		opts.Cmds = v
	}
	if v := c.String("log-path"); v != "" {
		opts.LogPath = v
	}

	raw := cfg.PtrSize
	if v := c.String("ptr-size"); v != "" && v != "auto" {
		raw = v
	}
	ptr, err := types.ParsePtrSize(raw)
	if err != nil {
		return options{}, err
	}
	opts.PtrSize = ptr
	return opts, nil
}

// RootAction runs the dashboard. Transport establishment failures
// exit with code 1; a normal session end exits 0.
func RootAction(c *cli.Context) error {
	opts, err := resolveOptions(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger, err := log.New(opts.LogPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() { _ = logger.Sync() }()

	tr, err := openTransport(opts)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() { _ = tr.Close() }()

	collector := metrics.NewCollector(opts.Target, opts.Remote)
	sess := session.New(session.Config{
		Transport: tr,
		Logger:    logger,
		Metrics:   collector,
		PtrSize:   opts.PtrSize,
	})

	sugar := logger.Sugar()
	if opts.Target != "" && opts.Remote == "" {
		for _, serr := range sess.Submit("file " + opts.Target) {
			sugar.Warnf("load target %s: %v", opts.Target, serr)
		}
	}
	if opts.Cmds != "" {
		cmds, err := script.Load(opts.Cmds)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		sugar.Infof("replaying %d commands from %s", len(cmds), opts.Cmds)
		for _, cmd := range cmds {
			for _, serr := range sess.Submit(cmd) {
				sugar.Warnf("script command %q: %v", cmd, serr)
			}
		}
	}

	if opts.Plain {
		err = plain.New(sess).Run()
	} else {
		err = tui.Run(sess)
	}
	logMetrics(logger, collector)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func openTransport(opts options) (transport.Transport, error) {
	if opts.Remote != "" {
		return transport.DialRemote(opts.Remote)
	}
	var extra []string
	if opts.Target != "" {
		extra = append(extra, opts.Target)
	}
	return transport.SpawnChild(opts.GDBPath, extra...)
}

func logMetrics(logger *log.Logger, collector *metrics.Collector) {
	s := collector.Snapshot()
	logger.Info("session metrics", map[string]any{
		"lines_read":      s.LinesRead,
		"parse_errors":    s.ParseErrors,
		"commands_sent":   s.CommandsSent,
		"results_matched": s.ResultsMatched,
		"results_dropped": s.ResultsDropped,
		"async_applied":   s.AsyncApplied,
		"interrupts":      s.Interrupts,
		"stop_refreshes":  s.StopRefreshes,
		"memory_reads":    s.MemoryReads,
	})
}

// Usage strings shared by main.
const (
	AppName  = "prospect"
	AppUsage = "Terminal dashboard for debugging over the GDB machine interface"
)
