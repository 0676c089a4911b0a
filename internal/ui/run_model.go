package ui

import (
	"context"
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// RunConfig configures RunModel.
type RunConfig struct {
	// Width and Height force the window size; 0 auto-detects.
	Width, Height int
	StartKeys     []string
	// Watch, when set, runs for the lifetime of the program and delivers
	// document replacements through send.
	Watch   func(ctx context.Context, send func(DocumentMsg)) error
	Options []tea.ProgramOption
}

// RunModel starts the Bubble Tea program for m and blocks until it exits.
func RunModel(ctx context.Context, m *Model, cfg RunConfig) error {
	opts := cfg.Options
	if cfg.Width > 0 || cfg.Height > 0 {
		runW, runH := cfg.Width, cfg.Height
		if runW <= 0 || runH <= 0 {
			if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				if runW <= 0 {
					runW = w
				}
				if runH <= 0 {
					runH = h
				}
			}
		}
		if runW <= 0 {
			runW = 80
		}
		if runH <= 0 {
			runH = 24
		}
		m.setSize(runW, runH)
		opts = append(opts, tea.WithWindowSize(runW, runH))
	}

	ApplyStartupKeys(m, cfg.StartKeys)

	prog := tea.NewProgram(m, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Watch != nil {
		go func() {
			err := cfg.Watch(ctx, func(msg DocumentMsg) { prog.Send(msg) })
			if err != nil && ctx.Err() == nil {
				m.log.Error(err, "watch stopped")
			}
		}()
	}

	_, err := prog.Run()
	return err
}
