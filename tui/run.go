package tui

import (
	"context"
	"fmt"
	"strings"

	"bookfetch/internal/fetcher"
	"bookfetch/internal/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// Run fetches reqs with f while rendering progress. It returns the fetch
// error, or context.Canceled when the user quits early. Log output of the
// fetch is shown inside the view instead of going to stderr.
func Run(ctx context.Context, f *fetcher.Fetcher, reqs []fetcher.Request) ([]fetcher.Result, error) {
	return run(ctx, f, reqs)
}

func run(ctx context.Context, f *fetcher.Fetcher, reqs []fetcher.Request, opts ...tea.ProgramOption) ([]fetcher.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(reqs, cancel)
	p := tea.NewProgram(m, opts...)

	level := logger.Log.GetLevel()
	if f.Logger != nil {
		level = f.Logger.GetLevel()
	}

	fc := *f
	fc.OnStage = func(ev fetcher.Event) { p.Send(stageMsg(ev)) }
	fc.Logger = log.NewWithOptions(logWriter{send: p.Send}, log.Options{Level: level})

	done := make(chan doneMsg, 1)
	go func() {
		results, err := fc.FetchAll(ctx, reqs)
		msg := doneMsg{results: results, err: err}
		done <- msg
		p.Send(msg)
	}()

	final, runErr := p.Run()
	// The fetch must not outlive the view: stop it and wait.
	cancel()
	out := <-done

	if runErr != nil {
		return out.results, fmt.Errorf("run tui: %w", runErr)
	}
	if fm := final.(model); !fm.finished && fm.err != nil {
		return out.results, fm.err
	}
	return out.results, out.err
}

// logWriter hands each formatted log entry to the program.
type logWriter struct {
	send func(tea.Msg)
}

func (w logWriter) Write(p []byte) (int, error) {
	w.send(logMsg(strings.TrimRight(string(p), "\n")))
	return len(p), nil
}
