package tui

import (
	"context"
	"fmt"

	"bookfetch/internal/fetcher"

	tea "github.com/charmbracelet/bubbletea"
)

type stageMsg fetcher.Event

// logMsg is one formatted log entry from the running fetch.
type logMsg string

type doneMsg struct {
	results []fetcher.Result
	err     error
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.finished {
				return m, tea.Quit
			}
			m.cancel()
			m.setError(context.Canceled)
			return m, tea.Quit
		}
		return m, nil

	case stageMsg:
		i, ok := m.index[msg.Book]
		if !ok {
			return m, nil
		}
		m.rows[i].started = true
		m.rows[i].stage = msg.Stage
		m.rows[i].detail = msg.Detail
		return m, nil

	case logMsg:
		m.logs = append(m.logs, string(msg))
		return m, nil

	case doneMsg:
		m.finished = true
		m.results = msg.results
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.status = fmt.Sprintf("Fetched %d book(s).", len(msg.results))
		}
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}
