package tui

import (
	"context"

	"bookfetch/internal/fetcher"

	"github.com/charmbracelet/bubbles/spinner"
)

type bookRow struct {
	name    string
	stage   fetcher.Stage
	detail  string
	started bool
}

type model struct {
	rows  []bookRow
	index map[string]int

	spin   spinner.Model
	cancel context.CancelFunc

	finished bool
	results  []fetcher.Result
	err      error
	status   string
	logs     []string

	width int
}

func newModel(reqs []fetcher.Request, cancel context.CancelFunc) model {
	rows := make([]bookRow, 0, len(reqs))
	index := make(map[string]int, len(reqs))
	for i, r := range reqs {
		name := r.Book
		if name == "" {
			name = r.Owner + "/" + r.Project
		}
		rows = append(rows, bookRow{name: name})
		index[name] = i
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		rows:   rows,
		index:  index,
		spin:   sp,
		cancel: cancel,
		status: "q: cancel",
	}
}

func (m *model) setError(err error) {
	m.err = err
	if err != nil {
		m.status = err.Error()
	}
}
