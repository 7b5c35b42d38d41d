// Package plain is the line-oriented console surface: no fullscreen
// dashboard, just a prompt with history, completion, and streamed
// debugger output. Useful over slow links and inside scripts.
package plain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/justapithecus/prospect/history"
	"github.com/justapithecus/prospect/iox"
	"github.com/justapithecus/prospect/mi"
	"github.com/justapithecus/prospect/session"
)

// pollInterval matches the dashboard's drain cadence.
const pollInterval = 100 * time.Millisecond

// Console is the plain-mode loop.
type Console struct {
	sess *session.Session
	hist *history.History
}

// New builds a console around an established session.
func New(sess *session.Session) *Console {
	return &Console{sess: sess, hist: &history.History{}}
}

// completer adapts the completion engine to readline's interface.
type completer struct {
	sess *session.Session
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	prefix := string(line[:pos])
	res := history.Complete(prefix, c.sess.KnownCommands())
	if res.Kind == history.CompletionNone {
		return nil, 0
	}
	out := make([][]rune, 0, len(res.Candidates))
	for _, cand := range res.Candidates {
		out = append(out, []rune(cand[len(prefix):]))
	}
	return out, len(prefix)
}

// Run reads commands until EOF or session exit. Output drains on a
// background ticker so stream records appear while the prompt waits.
func (c *Console) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "(prospect) ",
		AutoComplete:    &completer{sess: c.sess},
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("plain: readline: %w", err)
	}
	defer iox.DiscardClose(rl)

	stop := make(chan struct{})
	defer close(stop)
	go c.drainLoop(rl.Stdout(), stop)

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			// interrupt the target if it runs; a second ^C at the
			// prompt quits
			if ierr := c.sess.Interrupt(); ierr != nil {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("plain: read: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			last, ok := c.hist.Last()
			if !ok {
				continue
			}
			line = last.Text
		}
		c.hist.Append(line)

		for _, serr := range c.sess.Submit(line) {
			fmt.Fprintln(rl.Stderr(), "prospect:", serr)
		}
		if c.sess.Snapshot().State == session.StateExited {
			return nil
		}
	}
}

func (c *Console) drainLoop(w io.Writer, stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, rec := range c.sess.Poll() {
				if line, ok := consoleLine(rec); ok {
					fmt.Fprintln(w, line)
				}
			}
		}
	}
}

// consoleLine projects a record onto plain output.
func consoleLine(rec mi.Record) (string, bool) {
	switch r := rec.(type) {
	case mi.StreamRecord:
		return strings.TrimRight(r.Text, "\n"), true
	case mi.AsyncRecord:
		if r.Kind == mi.AsyncExec && r.Class == "stopped" {
			reason := r.Fields.Str("reason")
			if reason == "" {
				reason = "stopped"
			}
			return "[" + reason + "]", true
		}
		return "", false
	case mi.ResultRecord:
		if r.Class == "error" {
			return "error: " + r.Fields.Str("msg"), true
		}
		return "", false
	}
	return "", false
}
