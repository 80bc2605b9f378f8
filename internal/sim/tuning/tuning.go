package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/sim/world"
)

type Tuning struct {
	Goal                 int    `yaml:"goal"`
	DepositThreshold     int    `yaml:"deposit_threshold"`
	ScanMode             string `yaml:"scan_mode"`
	ScanDistance         int    `yaml:"scan_distance"`
	DirectionalEnergyMin int    `yaml:"directional_energy_min"`
	MaxTaskFailures      int    `yaml:"max_task_failures"`

	Seed     int64  `yaml:"seed"`
	MaxTicks int    `yaml:"max_ticks"`
	DataDir  string `yaml:"data_dir"`

	World WorldTuning `yaml:"world"`
}

type WorldTuning struct {
	Rows             int `yaml:"rows"`
	Cols             int `yaml:"cols"`
	FirePerMille     int `yaml:"fire_per_mille"`
	GarbagePerMille  int `yaml:"garbage_per_mille"`
	BinPerMille      int `yaml:"bin_per_mille"`
	TeleportPerMille int `yaml:"teleport_per_mille"`
	WallPerMille     int `yaml:"wall_per_mille"`
	BinCapacity      int `yaml:"bin_capacity"`
	SpawnClearRadius int `yaml:"spawn_clear_radius"`
	SenseRadius      int `yaml:"sense_radius"`
	StartEnergy      int `yaml:"start_energy"`
	EnergyRegen      int `yaml:"energy_regen"`
}

// Default is used when no tuning file exists.
func Default() Tuning {
	return Tuning{
		Goal:                 10,
		DepositThreshold:     5,
		ScanMode:             string(agent.ScanAuto),
		ScanDistance:         3,
		DirectionalEnergyMin: 50,
		MaxTaskFailures:      0,
		Seed:                 1337,
		MaxTicks:             5000,
		DataDir:              "./data",
		World: WorldTuning{
			Rows:             32,
			Cols:             32,
			FirePerMille:     25,
			GarbagePerMille:  60,
			BinPerMille:      8,
			TeleportPerMille: 4,
			WallPerMille:     30,
			BinCapacity:      20,
			SpawnClearRadius: 1,
			SenseRadius:      1,
			StartEnergy:      1000,
			EnergyRegen:      2,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path is empty
// or does not exist.
func LoadOrDefault(path string) (Tuning, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func (t Tuning) Validate() error {
	if t.Goal < 1 {
		return fmt.Errorf("goal must be >= 1, got %d", t.Goal)
	}
	if t.DepositThreshold < 0 {
		return fmt.Errorf("deposit_threshold must be >= 0, got %d", t.DepositThreshold)
	}
	switch agent.ScanMode(t.ScanMode) {
	case agent.ScanFull, agent.ScanDirectional, agent.ScanAuto:
	default:
		return fmt.Errorf("scan_mode must be full, directional or auto, got %q", t.ScanMode)
	}
	if t.ScanDistance < 1 {
		return fmt.Errorf("scan_distance must be >= 1, got %d", t.ScanDistance)
	}
	if t.MaxTaskFailures < 0 {
		return fmt.Errorf("max_task_failures must be >= 0, got %d", t.MaxTaskFailures)
	}
	if t.World.Rows < 1 || t.World.Cols < 1 {
		return fmt.Errorf("world size must be positive, got %dx%d", t.World.Rows, t.World.Cols)
	}
	sum := t.World.FirePerMille + t.World.GarbagePerMille + t.World.BinPerMille + t.World.TeleportPerMille + t.World.WallPerMille
	if sum > 1000 {
		return fmt.Errorf("world content per-mille values sum to %d (> 1000)", sum)
	}
	return nil
}

func (t Tuning) AgentConfig() agent.Config {
	return agent.Config{
		Goal:                 t.Goal,
		DepositThreshold:     t.DepositThreshold,
		ScanMode:             agent.ScanMode(t.ScanMode),
		ScanDistance:         t.ScanDistance,
		DirectionalEnergyMin: t.DirectionalEnergyMin,
		MaxTaskFailures:      t.MaxTaskFailures,
	}
}

func (t Tuning) WorldConfig() world.Config {
	w := t.World
	return world.Config{
		Rows:             w.Rows,
		Cols:             w.Cols,
		Seed:             t.Seed,
		FirePerMille:     w.FirePerMille,
		GarbagePerMille:  w.GarbagePerMille,
		BinPerMille:      w.BinPerMille,
		TeleportPerMille: w.TeleportPerMille,
		WallPerMille:     w.WallPerMille,
		BinCapacity:      w.BinCapacity,
		SpawnClearRadius: w.SpawnClearRadius,
		SenseRadius:      w.SenseRadius,
		StartEnergy:      w.StartEnergy,
		EnergyRegen:      w.EnergyRegen,
	}
}
