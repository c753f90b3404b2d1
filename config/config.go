// Package config loads the engine settings from a TOML file:
//
//	prefix = "vm"
//	evaluator = "ecmascript"
//	placeholder = "(?)"
//	focus_delay = "100ms"
//	metrics = true
//	extras = true
//
//	[log]
//	level = "debug"
//	format = "json"
//
// Settings absent from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gowade/vmr/core"
)

const (
	EvaluatorExpr       = "expr"
	EvaluatorECMAScript = "ecmascript"

	FormatText = "text"
	FormatJSON = "json"

	// FileName is the configuration file looked up by the command line.
	FileName = "vmr.toml"
)

var ErrInvalid = errors.New("invalid configuration")

type (
	// Duration is a time.Duration written as "100ms" or "1s".
	Duration time.Duration

	Log struct {
		Level string `toml:"level"`
		// Format is "text" or "json", empty picks text on a terminal.
		Format string `toml:"format"`
	}

	Config struct {
		Prefix      string   `toml:"prefix"`
		Evaluator   string   `toml:"evaluator"`
		Placeholder string   `toml:"placeholder"`
		FocusDelay  Duration `toml:"focus_delay"`
		Log         Log      `toml:"log"`
		// Metrics reports the passes to Prometheus and OpenTelemetry.
		Metrics bool `toml:"metrics"`
		// Extras installs the optional directives, such as markdown.
		Extras bool `toml:"extras"`
	}
)

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func Default() Config {
	return Config{
		Prefix:      core.DefaultPrefix,
		Evaluator:   EvaluatorExpr,
		Placeholder: core.DefaultPlaceholder,
		FocusDelay:  Duration(core.DefaultFocusDelay),
		Log:         Log{Level: "info"},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %v: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %v: %w: unknown keys %v", path, ErrInvalid, undecoded)
	}

	return cfg, cfg.Validate()
}

// Decode reads a configuration from r over the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("%w: empty prefix", ErrInvalid)
	}

	switch c.Evaluator {
	case EvaluatorExpr, EvaluatorECMAScript:
	default:
		return fmt.Errorf("%w: evaluator %q, want %q or %q", ErrInvalid, c.Evaluator, EvaluatorExpr, EvaluatorECMAScript)
	}

	switch c.Log.Format {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if c.FocusDelay < 0 {
		return fmt.Errorf("%w: negative focus_delay", ErrInvalid)
	}

	return nil
}

func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}

	return level, nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
