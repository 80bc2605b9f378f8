package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot.ai/internal/printer"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errBuf bytes.Buffer
	prevOut, prevErr, prevNoColor := printer.Out, printer.Err, color.NoColor
	printer.Out, printer.Err, color.NoColor = &out, &errBuf, true
	t.Cleanup(func() { printer.Out, printer.Err, color.NoColor = prevOut, prevErr, prevNoColor })

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String() + errBuf.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, err := execute(t)
	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "gridbot")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, err := execute(t, "--unknown-flag", "value")
	assert.Error(t, err)
}

func TestRun_RejectsInvalidGoal(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--config", filepath.Join(dir, "missing.yaml"), "--data-dir", dir, "--goal", "0")
	require.Error(t, err)
	assert.Contains(t, out, "goal must be >= 1")
}

func TestRunThenReplay(t *testing.T) {
	dir := t.TempDir()
	common := []string{"--config", filepath.Join(dir, "missing.yaml"), "--data-dir", dir, "--seed", "11", "--goal", "2", "--max-ticks", "400"}

	out, err := execute(t, append([]string{"run"}, common...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ticks:")

	runs, err := os.ReadDir(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.FileExists(t, filepath.Join(dir, "index.db"))

	out, err = execute(t, append([]string{"replay", "--verify"}, common...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "replay ok")
	assert.Contains(t, out, "index "+runs[0].Name())

	// Reset so later tests in the package see the default.
	replayVerify = false
}

func TestReplay_UnknownRun(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "replay", "nope", "--config", filepath.Join(dir, "missing.yaml"), "--data-dir", dir)
	assert.Error(t, err)
}
