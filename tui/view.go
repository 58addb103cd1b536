package tui

import (
	"fmt"
	"strings"

	"bookfetch/internal/fetcher"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	w := m.width - 4
	if w <= 0 {
		w = 76
	}

	var (
		appPad = lipgloss.NewStyle().Padding(1, 2)

		muted = lipgloss.NewStyle().Faint(true)
		bold  = lipgloss.NewStyle().Bold(true)

		titleBar = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder())

		statusBox = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder())

		errorBox = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				Bold(true)
	)

	sub := fmt.Sprintf("%d book(s)", len(m.rows))
	if !m.finished && m.err == nil {
		sub = fmt.Sprintf("%s  •  %s Working…", sub, m.spin.View())
	}
	header := titleBar.Width(w - 2*2).Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			bold.Render("Release Book Fetcher"),
			muted.Render(sub),
		),
	)

	var body strings.Builder
	for _, r := range m.rows {
		fmt.Fprintf(&body, "%s\n", m.rowView(r, bold, muted))
	}

	for _, line := range m.logs {
		fmt.Fprintf(&body, "%s\n", muted.Render(line))
	}

	var footer string
	if m.err != nil {
		footer = errorBox.Width(w - 2*2).Render("Error: " + m.err.Error())
	} else if strings.TrimSpace(m.status) != "" {
		footer = statusBox.Width(w - 2*2).Render(m.status)
	}

	return appPad.Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			header,
			body.String(),
			footer,
		),
	)
}

func (m model) rowView(r bookRow, bold, muted lipgloss.Style) string {
	var mark string
	switch {
	case !r.started:
		mark = muted.Render("·")
	case r.stage == fetcher.StageDone:
		mark = bold.Render("✓")
	case m.err != nil:
		mark = bold.Render("✗")
	default:
		mark = m.spin.View()
	}

	line := fmt.Sprintf("%s %s", mark, bold.Render(r.name))
	if r.started {
		line += "  " + r.stage.String()
		if r.detail != "" {
			line += " " + muted.Render(r.detail)
		}
	} else {
		line += "  " + muted.Render("waiting")
	}
	return line
}
