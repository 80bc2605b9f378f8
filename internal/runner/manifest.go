package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"gridbot.ai/internal/sim/tuning"
)

const manifestName = "run.yaml"

// Manifest is stored next to a run's tick log so the run can be replayed.
type Manifest struct {
	RunID     string        `yaml:"run_id"`
	StartedAt time.Time     `yaml:"started_at"`
	Mode      string        `yaml:"mode"`
	Remote    string        `yaml:"remote,omitempty"`
	Tuning    tuning.Tuning `yaml:"tuning"`
}

func NewRunID() string { return uuid.NewString() }

// RunDir is where a run keeps its manifest and tick log.
func RunDir(dataDir, runID string) string {
	return filepath.Join(dataDir, "runs", runID)
}

// IndexPath is the sqlite index shared by all runs under dataDir.
func IndexPath(dataDir string) string {
	return filepath.Join(dataDir, "index.db")
}

func WriteManifest(runDir string, m Manifest) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, manifestName), raw, 0o644)
}

func ReadManifest(runDir string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(filepath.Join(runDir, manifestName))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("%s: %w", manifestName, err)
	}
	if m.RunID == "" {
		return m, fmt.Errorf("%s: missing run_id", manifestName)
	}
	return m, nil
}
