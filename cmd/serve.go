package cmd

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/internal/server"
	"github.com/oakwood-commons/jvx/internal/ui"
	"github.com/oakwood-commons/jvx/internal/watch"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

type serveOptions struct {
	addr      string
	open      bool
	watch     bool
	format    string
	expand    []string
	expandAll bool
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Browse a document in the web browser",
		Long: `Start a local web server showing the document as a virtualized tree.

Each browser session keeps its own expanded rows and search term. Paste or
upload a new document from the page; with --watch the file is reloaded when it
changes.`,
		Example: `  jvx serve data.json
  jvx serve data.json --addr 127.0.0.1:9000 --open
  jvx serve --watch build/report.json`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("accepts at most 1 file, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, a, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	f.BoolVar(&opts.open, "open", false, "open the page in the default browser")
	f.BoolVar(&opts.watch, "watch", false, "reload the file when it changes")
	f.StringVar(&opts.format, "format", "auto", "input format: auto|json|jsonc|yaml|toml")
	f.StringArrayVar(&opts.expand, "expand", nil, "expand this path in new sessions (repeatable)")
	f.BoolVar(&opts.expandAll, "expand-all", false, "expand everything in new sessions")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, opts *serveOptions, args []string) error {
	format, err := loader.ParseFormat(opts.format)
	if err != nil {
		return usageError{err: err}
	}
	mode, err := flatten.ParseInvalidPatternMode(a.cfg.UI.Search.InvalidPattern)
	if err != nil {
		return err
	}

	src, err := resolveSource(args, stdinIsPiped())
	if err != nil && !errors.Is(err, errNoInput) {
		return err
	}
	if opts.watch && src.Path == "" {
		return usageErrorf("--watch needs a file argument")
	}
	src.Watch = opts.watch
	a.run.Source = src

	addr := a.cfg.Server.Addr
	if flagChanged(cmd.Flags(), "addr") {
		addr = opts.addr
	}
	cfg := server.Config{
		Addr:           addr,
		AppName:        a.cfg.App.Name,
		RowHeight:      a.cfg.Server.RowHeight,
		Overscan:       a.cfg.Server.Overscan,
		SessionSecret:  a.cfg.Server.SessionSecret,
		SessionMaxAge:  a.cfg.Server.SessionMaxAge,
		MaxSessions:    a.cfg.Server.MaxSessions,
		InvalidPattern: mode,
		Expanded:       opts.expand,
		WatchFormat:    format,
		Logger:         a.log.WithName("server"),
	}
	if src.Path != "" {
		cfg.Source = filepath.Base(src.Path)
	}
	if src.Watch {
		cfg.Watch = watch.New(src.Path, watch.WithLogger(a.log.WithName("watch")))
	}
	if opts.open {
		cfg.OnListen = func(url string) {
			if err := ui.OpenURL(url); err != nil {
				a.log.Error(err, "open browser", "url", url)
			}
		}
	}

	var (
		doc     value.Value
		loadErr = loader.ErrEmptyInput
	)
	if src.Path != "" || src.FromStdin {
		doc, loadErr = loadSource(src, cmd.InOrStdin(), format)
		if loadErr == nil && opts.expandAll {
			cfg.Expanded = append(append([]string(nil), cfg.Expanded...), flatten.Sorted(flatten.CompositePaths(doc))...)
		}
	}

	s := server.New(cfg)
	if msg := s.ApplyLoad(doc, loadErr, ""); msg != "" {
		a.log.Info("initial document not loaded", "source", src.Name(), "error", msg)
	}
	return s.ListenAndServe(cmd.Context())
}
