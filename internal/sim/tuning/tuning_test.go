package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot.ai/internal/agent"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gridbot.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeFile(t, "goal: 3\nscan_mode: directional\nworld:\n  rows: 8\n  cols: 9\n")
	tu, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 3, tu.Goal)
	assert.Equal(t, "directional", tu.ScanMode)
	assert.Equal(t, 8, tu.World.Rows)
	assert.Equal(t, 9, tu.World.Cols)
	// Untouched keys keep defaults.
	assert.Equal(t, 5, tu.DepositThreshold)
	assert.Equal(t, 20, tu.World.BinCapacity)

	cfg := tu.AgentConfig()
	assert.Equal(t, agent.ScanDirectional, cfg.ScanMode)
	assert.Equal(t, 3, cfg.Goal)

	wc := tu.WorldConfig()
	assert.Equal(t, tu.Seed, wc.Seed)
	assert.Equal(t, 8, wc.Rows)
}

func TestDefault_RetriesTasksForever(t *testing.T) {
	tu := Default()
	assert.Equal(t, 0, tu.MaxTaskFailures)
	assert.Equal(t, 0, tu.AgentConfig().MaxTaskFailures)
}

func TestLoad_ZeroDepositThresholdIsKept(t *testing.T) {
	tu, err := Load(writeFile(t, "deposit_threshold: 0\nmax_task_failures: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tu.AgentConfig().DepositThreshold)
	assert.Equal(t, 4, tu.AgentConfig().MaxTaskFailures)
}

func TestLoad_ShippedConfig(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "gridbot.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), tu)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Tuning)
	}{
		{"zero goal", func(t *Tuning) { t.Goal = 0 }},
		{"bad scan mode", func(t *Tuning) { t.ScanMode = "sideways" }},
		{"zero scan distance", func(t *Tuning) { t.ScanDistance = 0 }},
		{"negative failures", func(t *Tuning) { t.MaxTaskFailures = -1 }},
		{"empty world", func(t *Tuning) { t.World.Rows = 0 }},
		{"over-full world", func(t *Tuning) { t.World.WallPerMille = 990 }},
	}
	require.NoError(t, Default().Validate())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tu := Default()
			tc.mut(&tu)
			assert.Error(t, tu.Validate())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "goal: [1, 2]\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "goal: 0\n"))
	assert.ErrorContains(t, err, "goal")
}

func TestLoadOrDefault(t *testing.T) {
	tu, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tu)

	tu, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), tu)
}
