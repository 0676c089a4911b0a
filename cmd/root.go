// Package cmd holds the jvx command line: the root command that renders or
// browses a document, and the serve, version and config subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/jvx/internal/config"
	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/internal/formatter"
	"github.com/oakwood-commons/jvx/internal/ui"
	"github.com/oakwood-commons/jvx/internal/watch"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/logger"
	"github.com/oakwood-commons/jvx/pkg/settings"
	"github.com/oakwood-commons/jvx/pkg/value"
)

// usageError marks bad flag values and arguments; the process exits 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	debug      bool
	logFile    string
	noColor    bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	global globalOptions
	cfg    config.Config
	run    *settings.Run
	log    logr.Logger
}

// rootOptions are the root command's flags.
type rootOptions struct {
	interactive bool
	output      string
	expression  string
	jsonPath    string
	search      string
	expand      []string
	expandAll   bool
	format      string
	watch       bool
	startKeys   []string
	snapshot    bool
	width       int
	height      int
	keyMode     string
	themeName   string
	maxWidth    int
	keysOnly    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{run: settings.NewCliParams(), log: logr.Discard()}
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   settings.CliBinaryName + " [file]",
		Short: "Collapsible, searchable JSON tree viewer",
		Long: `jvx shows a JSON document as a tree of key/value rows.

Objects and arrays collapse and expand; a search term (a case-insensitive
regular expression) keeps only the rows whose path or value matches, together
with their parents. Read a file, or pipe a document on stdin.

Without -i the rows are printed once (-o tree|table|paths|json). With -i the
document opens in the terminal viewer; "jvx serve" opens it in the browser.`,
		Example: `  jvx data.json
  jvx data.json -o paths --search 'name$'
  curl -s https://api.example.com/items | jvx -i
  jvx -i --watch config.json
  jvx data.json --jsonpath '$.items[*].name'
  jvx data.json -e '_.items.filter(x, x.price > 10)'
  jvx serve data.json --open`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("accepts at most 1 file, received %d", len(args))
			}
			return nil
		},
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// The terminal viewer owns the screen; logs go to a file or nowhere.
			tui := cmd.Name() == settings.CliBinaryName && opts.interactive && !opts.snapshot
			return a.setup(cmd, tui)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, a, opts, args)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.global.configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/jvx/config.yaml)")
	pf.BoolVar(&a.global.debug, "debug", false, "log at debug level")
	pf.StringVar(&a.global.logFile, "log-file", "", "append logs to this file")
	pf.BoolVar(&a.global.noColor, "no-color", false, "disable color output")

	f := rootCmd.Flags()
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "open the terminal viewer")
	f.StringVarP(&opts.output, "output", "o", "tree", "output format: tree|table|paths|json")
	f.StringVarP(&opts.expression, "expression", "e", "", "CEL expression with '_' as the document; the result is viewed. Example: '_.items[0]'")
	f.StringVar(&opts.jsonPath, "jsonpath", "", "RFC 9535 JSONPath query; the selection is viewed. Example: '$.items[*].name'")
	f.StringVar(&opts.search, "search", "", "search term (case-insensitive regular expression)")
	f.StringArrayVar(&opts.expand, "expand", nil, "expand this path (repeatable; \"\" is the root)")
	f.BoolVar(&opts.expandAll, "expand-all", false, "expand every object and array")
	f.StringVar(&opts.format, "format", "auto", "input format: auto|json|jsonc|yaml|toml")
	f.BoolVar(&opts.watch, "watch", false, "reload the file when it changes (with -i)")
	f.StringArrayVar(&opts.startKeys, "press", nil, "simulate keys on startup, e.g. --press \"/name<CR>\" or --press \"<C-d>\"")
	f.BoolVar(&opts.snapshot, "snapshot", false, "render one frame of the terminal viewer and exit; honors --width/--height")
	f.IntVar(&opts.width, "width", 0, "output width in columns")
	f.IntVar(&opts.height, "height", 0, "output height in rows")
	f.StringVar(&opts.keyMode, "keymap", "", "keybinding mode: vim|emacs|function (default from config)")
	f.StringVar(&opts.themeName, "theme", "", "theme name (default from config; see 'jvx config themes')")
	f.IntVar(&opts.maxWidth, "max-value-width", 0, "truncate values to this many cells (default from config)")
	f.BoolVar(&opts.keysOnly, "keys-only", false, "print keys without values (-o tree|paths)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", fixedCompletion(formatterFormats()...))
	_ = rootCmd.RegisterFlagCompletionFunc("format", fixedCompletion(loaderFormats()...))
	_ = rootCmd.RegisterFlagCompletionFunc("keymap", fixedCompletion("vim", "emacs", "function"))

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(a))
	return rootCmd
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func formatterFormats() []string {
	out := make([]string, 0, len(formatter.ValidFormats))
	for _, f := range formatter.ValidFormats {
		out = append(out, string(f))
	}
	return out
}

func loaderFormats() []string {
	out := make([]string, 0, len(loader.ValidFormats))
	for _, f := range loader.ValidFormats {
		out = append(out, string(f))
	}
	return out
}

// setup loads the config and builds the logger for the command about to run.
func (a *app) setup(cmd *cobra.Command, tui bool) error {
	cfg, err := config.Load(a.global.configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usageErrorf("config file %s does not exist", a.global.configFile)
		}
		return err
	}
	a.cfg = cfg

	a.run.NoColor = a.global.noColor || os.Getenv("NO_COLOR") != ""
	a.run.LogLevel = cfg.Log.Level
	if a.global.debug {
		a.run.LogLevel = "debug"
	}
	a.run.LogFile = cfg.Log.File
	if a.global.logFile != "" {
		a.run.LogFile = a.global.logFile
	}
	a.run.Interactive = tui

	lg, err := logger.New(logger.Options{
		Level:   a.run.LogLevel,
		File:    a.run.LogFile,
		Output:  cmd.ErrOrStderr(),
		Discard: tui,
	})
	if err != nil {
		return err
	}
	a.log = lg.WithValues(logger.CommandKey, cmd.Name())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, a.log)
	ctx = settings.IntoContext(ctx, a.run)
	cmd.SetContext(ctx)
	return nil
}

func (a *app) invalidPatternMode() flatten.InvalidPatternMode {
	mode, err := flatten.ParseInvalidPatternMode(a.cfg.UI.Search.InvalidPattern)
	if err != nil {
		return flatten.InvalidPatternLiteral
	}
	return mode
}

func runRoot(cmd *cobra.Command, a *app, opts *rootOptions, args []string) error {
	outFormat, err := formatter.ParseFormat(opts.output)
	if err != nil {
		return usageError{err: err}
	}
	inFormat, err := loader.ParseFormat(opts.format)
	if err != nil {
		return usageError{err: err}
	}
	keyMode := a.cfg.UI.Keymap
	if opts.keyMode != "" {
		keyMode = opts.keyMode
	}
	mode, err := ui.ParseKeyMode(keyMode)
	if err != nil {
		return usageError{err: err}
	}
	if opts.themeName != "" {
		if _, ok := a.cfg.UI.Themes[opts.themeName]; !ok {
			return usageErrorf("unknown theme %q; available themes: %s", opts.themeName, strings.Join(a.cfg.ThemeNames(), ", "))
		}
	}
	d, err := newDeriver(opts.jsonPath, opts.expression)
	if err != nil {
		return err
	}

	src, err := resolveSource(args, stdinIsPiped())
	if errors.Is(err, errNoInput) {
		return cmd.Help()
	}
	if opts.watch && src.Path == "" {
		return usageErrorf("--watch needs a file argument")
	}
	src.Watch = opts.watch
	a.run.Source = src
	a.log.V(1).Info("loading document", "source", src.Name(), "format", string(inFormat))

	doc, loadErr := loadDocument(src, cmd.InOrStdin(), inFormat, d)

	engine := flatten.NewEngine(
		flatten.WithInvalidPatternMode(a.invalidPatternMode()),
		flatten.WithExpanded(opts.expand...),
	)
	if !opts.interactive && !opts.snapshot {
		if err := engine.SetSearch(opts.search); err != nil {
			return usageError{err: err}
		}
		if notice := engine.SearchNotice(); notice != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", notice)
		}
		return printRows(cmd.OutOrStdout(), a, engine, doc, loadErr, outFormat, opts)
	}
	return runViewer(cmd, a, engine, doc, loadErr, mode, inFormat, d, src, opts)
}

// printRows is the non-interactive renderer. Without --expand flags the whole
// tree is shown.
func printRows(w io.Writer, a *app, engine *flatten.Engine, doc value.Value, loadErr error, format formatter.Format, opts *rootOptions) error {
	if errors.Is(loadErr, loader.ErrEmptyInput) {
		return nil
	}
	if loadErr != nil {
		return loadErr
	}
	engine.SetDocument(doc)
	if opts.expandAll || len(opts.expand) == 0 {
		engine.ExpandAll()
	}
	maxWidth := a.cfg.UI.MaxValueWidth
	if opts.maxWidth > 0 {
		maxWidth = opts.maxWidth
	}
	return formatter.Write(w, engine.Rows(), formatter.Options{Format: format, MaxValueWidth: maxWidth, NoValues: opts.keysOnly})
}

func runViewer(cmd *cobra.Command, a *app, engine *flatten.Engine, doc value.Value, loadErr error, mode ui.KeyMode, format loader.Format, d *deriver, src settings.Source, opts *rootOptions) error {
	theme := ui.ThemeByName(a.cfg, opts.themeName)
	if a.run.NoColor {
		theme = ui.PlainTheme()
	}
	maxWidth := a.cfg.UI.MaxValueWidth
	if opts.maxWidth > 0 {
		maxWidth = opts.maxWidth
	}
	source := src.Name()
	if src.Path != "" {
		source = filepath.Base(src.Path)
	}

	m := ui.NewModel(engine, ui.Options{
		AppName:       a.cfg.App.Name,
		Source:        source,
		KeyMode:       mode,
		Theme:         &theme,
		NoColor:       a.run.NoColor,
		Indent:        a.cfg.UI.Indent,
		Overscan:      a.cfg.UI.Overscan,
		MaxValueWidth: maxWidth,
		Logger:        a.log.WithName("ui"),
	})
	m.ApplyDocument(ui.DocumentMsg{Doc: doc, Err: loadErr, Source: source})
	if opts.expandAll {
		m.ExpandAll()
	}
	if opts.search != "" {
		m.SetSearch(opts.search)
	}

	if opts.snapshot {
		size := resolveSnapshotSize(opts.width, opts.height, detectTerminalSize)
		out := ui.RenderSnapshot(m, ui.SnapshotConfig{
			Width:     size.Width,
			Height:    size.Height,
			StartKeys: opts.startKeys,
		})
		_, err := io.WriteString(cmd.OutOrStdout(), out)
		return err
	}

	programOpts, cleanup := getProgramOptions()
	defer cleanup()

	runCfg := ui.RunConfig{
		Width:     opts.width,
		Height:    opts.height,
		StartKeys: opts.startKeys,
		Options:   programOpts,
	}
	if src.Watch {
		w := watch.New(src.Path, watch.WithLogger(a.log.WithName("watch")))
		runCfg.Watch = func(ctx context.Context, send func(ui.DocumentMsg)) error {
			return w.Documents(ctx, format, func(doc value.Value, err error) {
				if err == nil && d.active() {
					doc, err = d.apply(doc)
				}
				send(ui.DocumentMsg{Doc: doc, Err: err, Source: source})
			})
		}
	}
	return ui.RunModel(cmd.Context(), m, runCfg)
}

// flagChanged reports whether name was set on the command line.
func flagChanged(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}
