package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/prospect/deref"
	"github.com/justapithecus/prospect/hexdump"
	"github.com/justapithecus/prospect/mi"
	"github.com/justapithecus/prospect/session"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRegisters(),
		m.renderAsm(),
		m.renderStackWindow(),
		m.renderStack(),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderMappings(),
		m.renderOutput(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	sections := []string{
		m.renderStatus(),
		body,
	}
	if m.view != nil {
		sections = append(sections, m.renderHexdump())
	}
	sections = append(sections,
		m.input.View(),
		HelpStyle.Render("enter run · tab complete · ctrl+c interrupt · ctrl+d quit · pgup/pgdn dump · ctrl+n/p match"),
	)
	if m.status != "" {
		sections = append(sections, m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatus() string {
	state := m.snap.State.String()
	parts := []string{
		TitleStyle.Render("prospect"),
		StateStyle(state).Render(state),
	}
	if m.snap.StopReason != "" {
		parts = append(parts, LabelStyle.Render(m.snap.StopReason))
	}
	if m.snap.TargetPath != "" {
		parts = append(parts, ValueStyle.Render(m.snap.TargetPath))
	}
	parts = append(parts, LabelStyle.Render(fmt.Sprintf("ptr=%d", m.snap.PtrSize.Bytes()*8)))
	return strings.Join(parts, "  ")
}

func (m Model) classifier() *deref.Classifier {
	return &deref.Classifier{
		Table:    m.snap.Mappings,
		Mem:      m.sess.Memory(),
		PtrSize:  m.snap.PtrSize,
		Endian:   m.snap.Endian,
		ExecPath: m.snap.TargetPath,
	}
}

func (m Model) renderRegisters() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("registers"))
	b.WriteByte('\n')

	c := m.classifier()
	for _, reg := range m.snap.Registers {
		name := LabelStyle.Render(fmt.Sprintf("%-8s", reg.Name))
		value := ValueStyle.Render(reg.Value)
		if reg.Changed {
			value = ChangedStyle.Render(reg.Value)
		}
		b.WriteString(name)
		b.WriteString(value)
		if reg.HasWord {
			if chain := FormatChain(c.Walk(reg.Word), m.snap.Asm); chain != "" {
				b.WriteString(LabelStyle.Render("  " + chain))
			}
		}
		b.WriteByte('\n')
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// pcWord returns the program counter value from the current register
// snapshot, if one is present.
func (m Model) pcWord() (uint64, bool) {
	for _, reg := range m.snap.Registers {
		switch reg.Name {
		case "rip", "eip", "pc":
			if reg.HasWord {
				return reg.Word, true
			}
		}
	}
	return 0, false
}

func (m Model) renderAsm() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("instructions"))
	b.WriteByte('\n')
	pc, havePC := m.pcWord()
	for _, in := range m.snap.Asm {
		line := FormatInsn(in)
		if havePC && in.Addr == pc {
			line = ChangedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// spWord returns the stack pointer value from the register snapshot.
func spWord(regs []session.Register) (uint64, bool) {
	for _, reg := range regs {
		switch reg.Name {
		case "rsp", "esp", "sp":
			if reg.HasWord {
				return reg.Word, true
			}
		}
	}
	return 0, false
}

// stackWords is how many pointer-sized slots at $sp the stack pane
// shows, within the window the stop refresh pulls.
const stackWords = 16

// stackLines renders the slots at the stack pointer with their
// dereference chains. It ends at the first slot the byte cache cannot
// serve yet.
func stackLines(snap session.Snapshot, mem deref.MemoryReader, words int) []string {
	sp, ok := spWord(snap.Registers)
	if !ok {
		return nil
	}
	c := &deref.Classifier{
		Table:    snap.Mappings,
		Mem:      mem,
		PtrSize:  snap.PtrSize,
		Endian:   snap.Endian,
		ExecPath: snap.TargetPath,
	}
	step := uint64(snap.PtrSize.Bytes())
	var out []string
	for i := 0; i < words; i++ {
		addr := sp + uint64(i)*step
		buf, err := mem.ReadMemory(addr, int(step))
		if err != nil {
			break
		}
		word, err := snap.Endian.Pointer(buf)
		if err != nil {
			break
		}
		line := fmt.Sprintf("0x%012x  0x%0*x", addr, int(step)*2, word)
		if chain := FormatChain(c.Walk(word), snap.Asm); chain != "" {
			line += "  " + chain
		}
		out = append(out, line)
	}
	return out
}

func (m Model) renderStackWindow() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("stack"))
	b.WriteByte('\n')
	for _, line := range stackLines(m.snap, m.sess.Memory(), stackWords) {
		b.WriteString(ValueStyle.Render(line))
		b.WriteByte('\n')
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderStack() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("backtrace"))
	b.WriteByte('\n')
	for _, f := range m.snap.Frames {
		b.WriteString(fmt.Sprintf("%s %s %s",
			LabelStyle.Render(fmt.Sprintf("#%d", f.Level)),
			ValueStyle.Render(fmt.Sprintf("0x%08x", f.Addr)),
			ValueStyle.Render(f.Func)))
		if f.File != "" {
			b.WriteString(LabelStyle.Render(fmt.Sprintf(" %s:%d", f.File, f.Line)))
		}
		b.WriteByte('\n')
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderMappings() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("mappings"))
	b.WriteByte('\n')
	for _, mp := range m.snap.Mappings {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			ValueStyle.Render(fmt.Sprintf("0x%012x-0x%012x", mp.Start, mp.End)),
			LabelStyle.Render(fmt.Sprintf("%-4s", mp.Perms)),
			ValueStyle.Render(mp.Path)))
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderOutput() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("output"))
	b.WriteByte('\n')
	lines := m.output
	max := m.height / 3
	if max < 5 {
		max = 5
	}
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderHexdump() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("hexdump %#x+%#x", m.view.Base, m.view.Length)))
	b.WriteByte('\n')

	rows, err := m.view.Materialize(m.sess.Memory())
	if err != nil {
		b.WriteString(LabelStyle.Render("waiting for memory..."))
		return BoxStyle.Render(b.String())
	}
	for _, row := range rows {
		b.WriteString(FormatRow(row))
		b.WriteByte('\n')
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// FormatRow renders one hexdump row as addr, hex columns, ascii.
// Search hits are highlighted.
func FormatRow(row hexdump.Row) string {
	var b strings.Builder
	b.WriteString(ValueStyle.Render(fmt.Sprintf("0x%012x  ", row.Addr)))
	for i := 0; i < hexdump.RowWidth; i++ {
		if i >= len(row.Bytes) {
			b.WriteString("   ")
			continue
		}
		cell := fmt.Sprintf("%02x ", row.Bytes[i])
		if row.Hit[i] {
			cell = MatchStyle.Render(cell)
		}
		b.WriteString(cell)
	}
	b.WriteString(" ")
	b.WriteString(LabelStyle.Render(row.Ascii()))
	return b.String()
}

// FormatInsn renders one disassembled instruction with its symbolic
// location when the debugger reported one.
func FormatInsn(in session.Instruction) string {
	loc := ""
	if in.Func != "" {
		loc = fmt.Sprintf(" <%s+%d>", in.Func, in.Offset)
	}
	return fmt.Sprintf("0x%08x%s  %s", in.Addr, loc, in.Text)
}

// symbolFor resolves addr to func+offset when the disassembly window
// covers it.
func symbolFor(asm []session.Instruction, addr uint64) (string, bool) {
	for _, in := range asm {
		if in.Addr == addr && in.Func != "" {
			return fmt.Sprintf("%s+%d", in.Func, in.Offset), true
		}
	}
	return "", false
}

// FormatChain renders a dereference chain as "heap 0x... -> \"...\"".
// Code links pick up their symbolic location from asm when it covers
// them.
func FormatChain(chain []deref.Link, asm []session.Instruction) string {
	if len(chain) == 0 {
		return ""
	}
	// a lone unknown says nothing worth a column
	if len(chain) == 1 && chain[0].Class == deref.ClassUnknown {
		return ""
	}
	parts := make([]string, 0, len(chain))
	for _, link := range chain {
		switch link.Class {
		case deref.ClassString:
			parts = append(parts, fmt.Sprintf("%q", link.Text))
		case deref.ClassAscii:
			parts = append(parts, fmt.Sprintf("ascii %q", link.Text))
		case deref.ClassUnknown:
			parts = append(parts, fmt.Sprintf("%#x", link.Addr))
		case deref.ClassCode:
			part := fmt.Sprintf("code %#x", link.Addr)
			if sym, ok := symbolFor(asm, link.Addr); ok {
				part += " <" + sym + ">"
			}
			parts = append(parts, part)
		default:
			parts = append(parts, fmt.Sprintf("%s %#x", link.Class, link.Addr))
		}
	}
	return strings.Join(parts, " -> ")
}

// displayLine projects a protocol record onto the output pane.
// Stream text lands verbatim; async stop records get a short notice;
// plain command acks are noise and are skipped.
func displayLine(rec mi.Record) (string, bool) {
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
