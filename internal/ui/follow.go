// Package ui provides an optional terminal follower for agent runs.
package ui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/agentmux/internal/msgstore"
)

// maxVisible bounds how many entries the follower keeps on screen.
const maxVisible = 200

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// Follow renders normalized entries from the store until it closes or the
// user quits.
func Follow(store *msgstore.Store) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("follow requires a TTY")
	}

	records, cancel := store.Subscribe()
	defer cancel()

	m := followModel{records: records}
	_, err := tea.NewProgram(m).Run()
	return err
}

type recordMsg msgstore.Record

type storeClosedMsg struct{}

type followModel struct {
	records <-chan msgstore.Record
	lines   []string
	done    bool
}

func (m followModel) Init() tea.Cmd {
	return m.waitForRecord()
}

func (m followModel) waitForRecord() tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-m.records
		if !ok {
			return storeClosedMsg{}
		}
		return recordMsg(rec)
	}
}

func (m followModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case recordMsg:
		if line, ok := renderRecord(msgstore.Record(msg)); ok {
			m.lines = append(m.lines, line)
			if len(m.lines) > maxVisible {
				m.lines = m.lines[len(m.lines)-maxVisible:]
			}
		}
		return m, m.waitForRecord()
	case storeClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m followModel) View() string {
	var b strings.Builder
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if m.done {
		b.WriteString("(finished)\n")
	} else {
		b.WriteString("(q to quit)\n")
	}
	return b.String()
}

// renderRecord formats one store record for display. Raw stdout lines are
// skipped; the normalized entries carry the readable content.
func renderRecord(rec msgstore.Record) (string, bool) {
	switch rec.Kind {
	case msgstore.KindNormalized:
		entry := rec.Entry
		switch entry.Kind {
		case "session_start":
			return fmt.Sprintf("session %s", entry.SessionID), true
		case "tool":
			return fmt.Sprintf("[tool] %s", entry.Tool), true
		case "error":
			return fmt.Sprintf("[error] %s", entry.Content), true
		default:
			return entry.Content, entry.Content != ""
		}
	case msgstore.KindFinished:
		return fmt.Sprintf("exit %d", rec.ExitCode), true
	}
	return "", false
}
