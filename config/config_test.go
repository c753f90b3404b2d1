package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "vm", cfg.Prefix)
	require.Equal(t, EvaluatorExpr, cfg.Evaluator)
	require.Equal(t, "(?)", cfg.Placeholder)
	require.Equal(t, 100*time.Millisecond, time.Duration(cfg.FocusDelay))
	require.False(t, cfg.Metrics)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
prefix = "bind"
evaluator = "ecmascript"
focus_delay = "250ms"
extras = true

[log]
level = "debug"
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bind", cfg.Prefix)
	require.Equal(t, EvaluatorECMAScript, cfg.Evaluator)
	require.Equal(t, "(?)", cfg.Placeholder)
	require.Equal(t, 250*time.Millisecond, time.Duration(cfg.FocusDelay))
	require.True(t, cfg.Extras)
	require.Equal(t, FormatJSON, cfg.Log.Format)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)

	for name, content := range map[string]string{
		"unknown-key.toml": `colour = "red"`,
		"evaluator.toml":   `evaluator = "lua"`,
		"level.toml":       "[log]\nlevel = \"loud\"",
		"format.toml":      "[log]\nformat = \"xml\"",
		"prefix.toml":      `prefix = ""`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Load(path)
		require.True(t, errors.Is(err, ErrInvalid), name)
	}

	_, err = Decode(strings.NewReader(`focus_delay = "soon"`))
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	cfg := Default()
	cfg.Metrics = true
	cfg.FocusDelay = Duration(2 * time.Second)

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	require.Contains(t, buf.String(), `focus_delay = "2s"`)

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}
