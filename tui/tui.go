// Package tui provides the interactive download dashboard.
package tui

import (
	"context"
	"errors"

	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/source"
	tea "github.com/charmbracelet/bubbletea"
)

// Options encapsulates the runtime configuration for the dashboard.
type Options struct {
	Engine  *engine.Engine
	Series  *source.Series
	Request engine.Request
}

// controller is the part of the engine the dashboard drives.
type controller interface {
	PauseDownload(episode int) error
	ResumeDownload(episode int) error
	CancelDownload(episode int) error
	CancelAll()
	Status(episode int) (downloader.Status, bool)
}

type outcome struct {
	results []downloader.Result
	err     error
}

// Run starts the batch described by options and shows its progress until the user
// quits. Quitting before the batch ends cancels it. The batch results are returned
// once it has stopped.
func Run(ctx context.Context, options *Options) ([]downloader.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := event.NewChan(ctx, 64)
	bubble := newBubble(options.Engine, options.Series, options.Request)
	bubble.events = events

	program := tea.NewProgram(bubble, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan outcome, 1)
	go func() {
		results, err := options.Engine.StartDownload(ctx, options.Request, events)
		events.Close()
		program.Send(finishedMsg{results: results, err: err})
		done <- outcome{results: results, err: err}
	}()

	_, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Errorf("dashboard: %s", err)
	}

	// nobody reads the events past this point
	go func() {
		for range events.C {
		}
	}()

	select {
	case o := <-done:
		return o.results, o.err
	default:
		options.Engine.CancelAll()
	}

	o := <-done
	return o.results, o.err
}
