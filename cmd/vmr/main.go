// Command vmr renders HTML pages against YAML or JSON models, reads form
// values back into models and lints directive markup.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gowade/vmr"
	"github.com/gowade/vmr/config"
	"github.com/gowade/vmr/core"
)

// Version information set at build time.
var version = "dev"

type globalFlags struct {
	config    string
	prefix    string
	evaluator string
	logLevel  string
	logFormat string
	extras    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vmr",
		Short: "Render and sync view model bindings in HTML",
		Long: `vmr applies the directives of an HTML page (vm-text, vm-each, vm-value...)
to a model read from a YAML or JSON file.

  render  writes the rendered page
  sync    reads the form values of a page back into the model
  check   lists the directives that have no handler`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "configuration file (default: "+config.FileName+" when present)")
	pf.StringVar(&flags.prefix, "prefix", "", "directive attribute prefix")
	pf.StringVar(&flags.evaluator, "evaluator", "", `expression evaluator, "expr" or "ecmascript"`)
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", `log format, "text" or "json" (default: text on a terminal)`)
	pf.BoolVar(&flags.extras, "extras", false, "install the extra directives (markdown)")

	rootCmd.AddCommand(
		renderCmd(flags),
		syncCmd(flags),
		checkCmd(flags),
	)

	return rootCmd
}

// loadConfig reads the configuration file, the flags set on the command
// line take precedence.
func (f *globalFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	path := f.config
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}

	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	pf := cmd.Flags()
	if pf.Changed("prefix") {
		cfg.Prefix = f.prefix
	}
	if pf.Changed("evaluator") {
		cfg.Evaluator = f.evaluator
	}
	if pf.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if pf.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if pf.Changed("extras") {
		cfg.Extras = f.extras
	}

	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	format := cfg.Format
	if format == "" {
		format = config.FormatJSON
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = config.FormatText
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// setup builds the logger and the engine of a command.
func (f *globalFlags) setup(cmd *cobra.Command) (*core.Engine, *slog.Logger, error) {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	e, err := vmr.New(cfg, vmr.Options{Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	return e, logger, nil
}

// reportErrors logs the element errors of a pass one by one.
func reportErrors(logger *slog.Logger, file string, err error) {
	if err == nil {
		return
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			logger.Error("Directive failed", "file", file, "error", e)
		}
		return
	}

	logger.Error("Directive failed", "file", file, "error", err)
}
