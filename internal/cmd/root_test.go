package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/greptail/internal/config"
	"github.com/harrison/greptail/internal/engine"
	"github.com/harrison/greptail/internal/logger"
	"github.com/harrison/greptail/internal/pattern"
)

func TestNewRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{
		"regexp", "word-regexp", "line-regexp", "invert-match", "count",
		"quiet", "ignore-case", "dotall", "follow", "recursive",
		"after-context", "before-context", "context", "color",
		"log-level", "poll-interval", "config",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

func TestBuildConfig_FlagMapping(t *testing.T) {
	cmd, opts := newRootCommand()
	require.NoError(t, cmd.Flags().Parse([]string{
		"-e", "foo", "-e", "bar",
		"-w", "-i", "-v", "-c",
		"-A", "2", "-B", "1", "-C", "3",
		"--color", "never",
		"--poll-interval", "50ms",
		"--config", "/nonexistent/defaults.yaml",
	}))

	cfg, err := buildConfig(cmd, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo", "bar"}, cfg.Patterns)
	assert.True(t, cfg.Word)
	assert.True(t, cfg.IgnoreCase)
	assert.True(t, cfg.Invert)
	assert.True(t, cfg.Count)
	assert.Equal(t, config.ColorNever, cfg.Color)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)

	before, after := cfg.Context.Resolve()
	assert.Equal(t, 3, before, "-C overrides -B")
	assert.Equal(t, 3, after, "-C overrides -A")
}

func TestStatusError(t *testing.T) {
	match := engine.RunResult{Sources: []engine.SourceResult{{Name: "a", Matches: 2}}}
	assert.NoError(t, statusError(match))

	clean := engine.RunResult{Sources: []engine.SourceResult{{Name: "a"}}}
	assert.ErrorIs(t, statusError(clean), errNoMatch)

	errored := engine.RunResult{Sources: []engine.SourceResult{
		{Name: "a"},
		{Name: "b", Err: assert.AnError},
	}}
	assert.ErrorIs(t, statusError(errored), errReported)
}

func TestRunFollow_EligibilityValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "app.log", []byte("x\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "bin.log", []byte{0x00, 0x01}, 0o644))
	require.NoError(t, fs.MkdirAll("logs", 0o755))

	cfg := config.DefaultConfig()
	cfg.Patterns = []string{"x"}
	patterns, err := pattern.Compile(cfg.Patterns, pattern.Options{})
	require.NoError(t, err)
	log := logger.NewConsoleLogger(nil, "error")

	tests := []struct {
		name      string
		args      []string
		recursive bool
	}{
		{name: "no file", args: nil},
		{name: "multiple files", args: []string{"a.log", "b.log"}},
		{name: "stdin", args: []string{"-"}},
		{name: "missing file", args: []string{"absent.log"}},
		{name: "directory", args: []string{"logs"}},
		{name: "binary file", args: []string{"bin.log"}},
		{name: "with recursive", args: []string{"app.log"}, recursive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			c.Recursive = tt.recursive
			err := runFollow(context.Background(), fs, &c, patterns, log, tt.args, false, 0, 0)
			assert.Error(t, err)
		})
	}
}
