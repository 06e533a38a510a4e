// Package tui renders live ensemble progress while runs execute.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// MemberDone reports the completion of one ensemble member, identified by
// its 1-based member index.
type MemberDone struct {
	Member int
}

type doneMsg struct{}

type progress struct {
	total     int
	name      string
	done      map[int]bool
	completed int
	start     time.Time
	events    <-chan MemberDone
	aborted   bool
}

// Run blocks rendering progress until the events channel is closed (or the
// user quits). The driver feeds the channel from its OnMemberDone hook.
func Run(name string, total int, events <-chan MemberDone) error {
	m := progress{
		total:  total,
		name:   name,
		done:   make(map[int]bool, total),
		start:  time.Now(),
		events: events,
	}
	_, err := tea.NewProgram(m).Run()
	return err
}

func waitForEvent(events <-chan MemberDone) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return ev
	}
}

func (m progress) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MemberDone:
		if !m.done[msg.Member] {
			m.done[msg.Member] = true
			m.completed++
		}
		return m, waitForEvent(m.events)
	case doneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progress) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render(fmt.Sprintf("ensemble: %s", m.name)))
	b.WriteString("\n\n")

	// One cell per member, in member-index order.
	for i := 1; i <= m.total; i++ {
		if m.done[i] {
			b.WriteString(green.Render("#"))
		} else {
			b.WriteString(dim.Render("."))
		}
		if i%40 == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")

	elapsed := time.Since(m.start).Round(time.Millisecond)
	b.WriteString(white.Render(fmt.Sprintf("%d/%d members", m.completed, m.total)))
	b.WriteString(dim.Render(fmt.Sprintf("  %v elapsed", elapsed)))
	if m.completed == m.total {
		b.WriteString("  " + green.Render("done"))
	} else if m.aborted {
		b.WriteString("  " + yellow.Render("detaching (runs continue)"))
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("q to detach"))
	b.WriteString("\n")

	return b.String()
}
