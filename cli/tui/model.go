package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/prospect/hexdump"
	"github.com/justapithecus/prospect/history"
	"github.com/justapithecus/prospect/session"
)

// tickInterval is how often the dashboard drains the protocol engine.
const tickInterval = 100 * time.Millisecond

// outputLimit bounds the scrollback kept for the output pane.
const outputLimit = 500

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the dashboard: registers, stack, mappings, hexdump, and
// the command line, all fed from session snapshots.
type Model struct {
	sess     *session.Session
	hist     *history.History
	searcher *hexdump.Searcher

	input  textinput.Model
	view   *hexdump.View
	snap   session.Snapshot
	output []string
	status string

	width    int
	height   int
	quitting bool
}

// New builds the dashboard model around an established session.
func New(sess *session.Session) Model {
	input := textinput.New()
	input.Prompt = "(prospect) "
	input.Focus()
	return Model{
		sess:     sess,
		hist:     &history.History{},
		searcher: hexdump.NewSearcher(),
		input:    input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view != nil {
			m.view.Resize(m.dumpRows())
		}
		return m, nil

	case tickMsg:
		m.drain()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return *m, tea.Quit

	case key.Matches(msg, keys.Interrupt):
		// Ctrl-C stops the target while it runs; once it cannot,
		// it quits the dashboard, like plain gdb.
		if err := m.sess.Interrupt(); err != nil {
			m.quitting = true
			return *m, tea.Quit
		}
		m.status = "interrupt sent"
		return *m, nil

	case key.Matches(msg, keys.Submit):
		m.submit()
		return *m, nil

	case key.Matches(msg, keys.HistPrev):
		if e, ok := m.hist.Prev(); ok {
			m.input.SetValue(e.Text)
			m.input.CursorEnd()
		}
		return *m, nil

	case key.Matches(msg, keys.HistNext):
		if e, ok := m.hist.Next(); ok {
			m.input.SetValue(e.Text)
		} else {
			m.input.SetValue("")
		}
		m.input.CursorEnd()
		return *m, nil

	case key.Matches(msg, keys.Complete):
		m.complete()
		return *m, nil

	case key.Matches(msg, keys.DumpUp):
		if m.view != nil {
			m.view.Scroll(-m.dumpRows())
		}
		return *m, nil

	case key.Matches(msg, keys.DumpDown):
		if m.view != nil {
			m.view.Scroll(m.dumpRows())
		}
		return *m, nil

	case key.Matches(msg, keys.NextMatch):
		if m.view != nil {
			if off, ok := m.view.NextMatch(); ok {
				m.status = fmt.Sprintf("match at +%#x", off)
			}
		}
		return *m, nil

	case key.Matches(msg, keys.PrevMatch):
		if m.view != nil {
			if off, ok := m.view.PrevMatch(); ok {
				m.status = fmt.Sprintf("match at +%#x", off)
			}
		}
		return *m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return *m, cmd
}

// drain pulls buffered protocol records, refreshes the snapshot, and
// collects finished searches.
func (m *Model) drain() {
	for _, rec := range m.sess.Poll() {
		if line, ok := displayLine(rec); ok {
			m.output = append(m.output, line)
		}
	}
	if len(m.output) > outputLimit {
		m.output = m.output[len(m.output)-outputLimit:]
	}

	m.snap = m.sess.Snapshot()
	m.syncHexdump()

	select {
	case r := <-m.searcher.Results():
		if r.Err != nil {
			m.status = ErrorStyle.Render("search: " + r.Err.Error())
		} else if m.view != nil {
			m.view.SetMatches(r.Pattern, r.Offsets)
			m.status = fmt.Sprintf("%d matches", len(r.Offsets))
		}
	default:
	}
}

// syncHexdump rebuilds the hexdump view when the operator requests a
// new region.
func (m *Model) syncHexdump() {
	req := m.snap.Hexdump
	if req == nil {
		return
	}
	if m.view != nil && m.view.Base == req.Addr && m.view.Length == req.Length {
		return
	}
	m.view = hexdump.New(req.Addr, req.Length, m.dumpRows())
}

func (m *Model) dumpRows() int {
	rows := m.height/3 - 2
	if rows < 4 {
		rows = 4
	}
	return rows
}

// submit runs the command line. An empty line re-issues the most
// recent command, matching the debugger console habit.
func (m *Model) submit() {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		last, ok := m.hist.Last()
		if !ok {
			return
		}
		line = last.Text
	}
	m.hist.Append(line)

	// find/save act on the hexdump pane and stay inside the dashboard
	if handled := m.localCommand(line); handled {
		return
	}

	m.status = ""
	for _, err := range m.sess.Submit(line) {
		m.status = ErrorStyle.Render(err.Error())
	}
}

// localCommand intercepts dashboard-side commands that never reach
// the debugger.
func (m *Model) localCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "find":
		if m.view == nil {
			m.status = ErrorStyle.Render("find: no hexdump region (use: hexdump addr len)")
			return true
		}
		pattern, err := hexdump.ParsePattern(strings.TrimPrefix(line, "find"))
		if err != nil {
			m.status = ErrorStyle.Render(err.Error())
			return true
		}
		m.searcher.Start(m.sess.Memory(), m.view.Base, m.view.Length, pattern)
		m.status = "searching..."
		return true

	case "save":
		if m.view == nil || len(fields) != 2 {
			m.status = ErrorStyle.Render("usage: save <path> (with an active hexdump)")
			return true
		}
		if err := hexdump.Save(fields[1], m.sess.Memory(), m.view.Base, m.view.Length); err != nil {
			m.status = ErrorStyle.Render(err.Error())
		} else {
			m.status = "saved " + fields[1]
		}
		return true
	}
	return false
}

// complete applies tab completion to the input buffer.
func (m *Model) complete() {
	prefix := m.input.Value()
	res := history.Complete(prefix, m.knownCommands())
	switch res.Kind {
	case history.CompletionUnique:
		m.input.SetValue(res.Candidates[0])
		m.input.CursorEnd()
		m.status = ""
	case history.CompletionAmbiguous:
		m.status = strings.Join(res.Candidates, "  ")
	case history.CompletionNone:
		m.status = "no completion for " + prefix
	}
}

func (m *Model) knownCommands() []string {
	return append(m.sess.KnownCommands(), "find", "save")
}

// Run starts the dashboard fullscreen and blocks until it quits.
func Run(sess *session.Session) error {
	p := tea.NewProgram(New(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
