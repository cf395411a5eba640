// Package cmd defines the greptail command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/harrison/greptail/internal/config"
	"github.com/harrison/greptail/internal/engine"
	"github.com/harrison/greptail/internal/fsutil"
	"github.com/harrison/greptail/internal/logger"
	"github.com/harrison/greptail/internal/output"
	"github.com/harrison/greptail/internal/pattern"
	"github.com/harrison/greptail/internal/source"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// errNoMatch signals a clean scan that found nothing; exit status 1.
var errNoMatch = errors.New("no matches found")

// errReported signals a failure already written to stderr by the engine's
// logger; exit status 2 without printing it again.
var errReported = errors.New("one or more sources failed")

// rootOptions collects all flag values for one invocation.
type rootOptions struct {
	patterns     []string
	word         bool
	line         bool
	invert       bool
	count        bool
	quiet        bool
	ignoreCase   bool
	dotall       bool
	follow       bool
	recursive    bool
	before       int
	after        int
	around       int
	colorMode    string
	logLevel     string
	pollInterval time.Duration
	configPath   string
}

// NewRootCommand creates and returns the root cobra command for greptail.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// newRootCommand additionally exposes the bound options, for tests.
func newRootCommand() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "greptail [flags] [FILE...]",
		Short: "Line-oriented pattern matching with context and live tailing",
		Long: `greptail scans files, standard input, or a growing file for lines
matching regular-expression patterns, and emits matches with optional
surrounding context.

Multiple -e patterns combine as alternation. A single pattern may also be
a boolean expression: 'error&timeout' matches lines containing both,
'error&(conn|dial)' groups with parentheses.

With -f, greptail follows one regular file like 'tail -f | grep': it
starts at the current end of the file, emits newly appended matching
lines, and survives truncation and rotation by re-seeking to the new end.

Examples:
  greptail -e ERROR app.log
  greptail -e 'timeout&error' -C 2 app.log
  cat app.log | greptail -e warn -c
  greptail -f -e 'panic|fatal' /var/log/app.log`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.patterns, "regexp", "e", nil, "pattern to search for (repeatable; patterns combine as alternation)")
	flags.BoolVarP(&opts.word, "word-regexp", "w", false, "match only whole words")
	flags.BoolVarP(&opts.line, "line-regexp", "x", false, "match only whole lines")
	flags.BoolVarP(&opts.invert, "invert-match", "v", false, "select non-matching lines")
	flags.BoolVarP(&opts.count, "count", "c", false, "print only a count of matching lines per input")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all normal output; exit status only")
	flags.BoolVarP(&opts.ignoreCase, "ignore-case", "i", false, "ignore case distinctions")
	flags.BoolVar(&opts.dotall, "dotall", false, "make '.' match newlines")
	flags.BoolVarP(&opts.follow, "follow", "f", false, "follow a single growing file for new lines")
	flags.BoolVarP(&opts.recursive, "recursive", "r", false, "read all files under each directory, recursively")
	flags.IntVarP(&opts.after, "after-context", "A", 0, "print NUM lines of trailing context")
	flags.IntVarP(&opts.before, "before-context", "B", 0, "print NUM lines of leading context")
	flags.IntVarP(&opts.around, "context", "C", 0, "print NUM lines of context (overrides -A and -B)")
	flags.StringVar(&opts.colorMode, "color", string(config.ColorAuto), "highlight matches: auto, always, or never")
	flags.StringVar(&opts.logLevel, "log-level", "", "diagnostic verbosity: trace, debug, info, warn, error")
	flags.DurationVar(&opts.pollInterval, "poll-interval", 0, "follow-mode poll period (default 100ms)")
	flags.StringVar(&opts.configPath, "config", "", "defaults file (default ~/.greptail.yaml)")

	return cmd, opts
}

// Execute runs the root command and maps its outcome to a process exit
// status: 0 match found, 1 clean scan without matches, 2 fatal error.
func Execute() int {
	err := NewRootCommand().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoMatch):
		return 1
	case errors.Is(err, errReported):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "greptail: %v\n", err)
		return 2
	}
}

// buildConfig merges defaults file values and flags into a Config.
// Flags that were explicitly set win over file values.
func buildConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path := opts.configPath
	if path == "" {
		path = config.DefaultsPath()
	}
	if err := config.LoadDefaults(afero.NewOsFs(), cfg, path); err != nil {
		return nil, err
	}

	cfg.Patterns = opts.patterns
	cfg.Word = opts.word
	cfg.Line = opts.line
	cfg.Invert = opts.invert
	cfg.Count = opts.count
	cfg.Quiet = opts.quiet
	cfg.IgnoreCase = opts.ignoreCase
	cfg.DotAll = opts.dotall
	cfg.Follow = opts.follow
	cfg.Recursive = opts.recursive
	cfg.Context = config.ContextSpec{Before: opts.before, After: opts.after, Around: opts.around}

	if cmd.Flags().Changed("color") {
		cfg.Color = config.ColorMode(opts.colorMode)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval = opts.pollInterval
	}

	return cfg, nil
}

func runRoot(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	patterns, err := pattern.Compile(cfg.Patterns, pattern.Options{
		Word:       cfg.Word,
		Line:       cfg.Line,
		IgnoreCase: cfg.IgnoreCase,
		DotAll:     cfg.DotAll,
	})
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)
	fs := afero.NewOsFs()

	highlight := resolveHighlight(cfg.Color)
	before, after := cfg.Context.Resolve()

	if cfg.Follow {
		return runFollow(cmd.Context(), fs, cfg, patterns, log, args, highlight, before, after)
	}
	return runScan(cmd.Context(), fs, cfg, patterns, log, args, highlight, before, after)
}

// resolveHighlight maps the color mode onto a concrete decision for this
// process's stdout.
func resolveHighlight(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		color.NoColor = false
		return true
	case config.ColorNever:
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}

// runScan processes static sources sequentially in input order.
func runScan(ctx context.Context, fs afero.Fs, cfg *config.Config, patterns *pattern.Set, log *logger.ConsoleLogger, args []string, highlight bool, before, after int) error {
	paths, err := fsutil.ExpandInputs(fs, args, cfg.Recursive)
	if err != nil {
		return err
	}

	var inputs []engine.Input
	for _, path := range paths {
		if fsutil.IsBinary(fs, path) {
			log.LogDebug(fmt.Sprintf("skipping binary file %s", path))
			continue
		}
		inputs = append(inputs, makeInput(fs, path))
	}

	sink := output.NewTerminalSink(os.Stdout, patterns,
		output.WithHighlight(highlight && !cfg.Line),
		output.WithLineNumbers(true),
	)

	e := &engine.Engine{
		Patterns:  patterns,
		Before:    before,
		After:     after,
		Invert:    cfg.Invert,
		CountOnly: cfg.Count,
		Quiet:     cfg.Quiet,
		Sink:      sink,
		Log:       log,
	}

	result, err := e.Run(ctx, inputs)
	if err != nil {
		return err
	}
	return statusError(result)
}

// runFollow validates follow-mode eligibility and tails the single file.
func runFollow(ctx context.Context, fs afero.Fs, cfg *config.Config, patterns *pattern.Set, log *logger.ConsoleLogger, args []string, highlight bool, before, after int) error {
	if cfg.Recursive {
		return fmt.Errorf("cannot combine --follow with --recursive")
	}
	if len(args) != 1 || args[0] == fsutil.StdinPath {
		return fmt.Errorf("follow mode requires exactly one regular file")
	}
	path := args[0]

	info, err := fs.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot follow %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("cannot follow %s: not a regular file", path)
	}
	if fsutil.IsBinary(fs, path) {
		return fmt.Errorf("cannot follow binary file %s", path)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := output.NewTerminalSink(os.Stdout, patterns,
		output.WithHighlight(highlight && !cfg.Line),
	)

	e := &engine.Engine{
		Patterns:  patterns,
		Before:    before,
		After:     after,
		Invert:    cfg.Invert,
		CountOnly: cfg.Count,
		Quiet:     cfg.Quiet,
		Sink:      sink,
		Log:       log,
	}

	inputs := []engine.Input{{
		Name: path,
		Open: func() (source.Source, io.Closer, error) {
			return source.NewTailer(fs, path, cfg.PollInterval), nil, nil
		},
	}}

	result, err := e.Run(ctx, inputs)
	if err != nil {
		return err
	}
	return statusError(result)
}

// makeInput builds a lazily opened static input for path.
func makeInput(fs afero.Fs, path string) engine.Input {
	return engine.Input{
		Name: path,
		Open: func() (source.Source, io.Closer, error) {
			if path == fsutil.StdinPath {
				return source.NewReaderSource(os.Stdin), nil, nil
			}
			f, err := fs.Open(path)
			if err != nil {
				return nil, nil, err
			}
			return source.NewReaderSource(f), f, nil
		},
	}
}

// statusError maps a run result onto the sentinel errors Execute
// understands. Per-source failures were already logged.
func statusError(result engine.RunResult) error {
	switch result.ExitCode() {
	case 0:
		return nil
	case 1:
		return errNoMatch
	default:
		return errReported
	}
}
