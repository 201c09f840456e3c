package attack

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/firefly"
)

// Mode selects how an iteration's mutation is evaluated.
type Mode string

const (
	// ModeBlackBox queries the real detector and uses its confidence.
	ModeBlackBox Mode = "black_box"
	// ModeBlackBoxPlus uses the graph's own entropy as a proxy signal.
	ModeBlackBoxPlus Mode = "black_box_plus"
)

// Level selects the success predicate granularity.
type Level string

const (
	// LevelLibrary succeeds once the library is no longer detected at all.
	LevelLibrary Level = "library_level"
	// LevelVersion succeeds once the target version is no longer reported.
	LevelVersion Level = "version_level"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the attack configuration surface consumed by the engine.
type Config struct {
	Mode              Mode     `yaml:"mode"`
	Level             Level    `yaml:"level"`
	MaxIterations     int      `yaml:"maxIterations"`
	TargetSuccessRate float64  `yaml:"targetSuccessRate"`
	SwarmSize         int      `yaml:"swarmSize"`
	Mu                float64  `yaml:"mu"`
	AcceptThreshold   float64  `yaml:"acceptThreshold"`
	TargetVersion     string   `yaml:"targetVersion"`
	Seed              int64    `yaml:"seed"`
	CollaboratorLimit Duration `yaml:"collaboratorLimit"`
	OutputDir         string   `yaml:"outputDir"`
}

// DefaultConfig returns the configuration defaults the attack ships with.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeBlackBox,
		Level:             LevelLibrary,
		MaxIterations:     100,
		TargetSuccessRate: 0.90,
		SwarmSize:         firefly.DefaultSwarmSize,
		Mu:                entropy.DefaultMu,
		AcceptThreshold:   0.5,
		Seed:              1,
		CollaboratorLimit: Duration(5 * time.Minute),
		OutputDir:         "out",
	}
}

// LoadConfig reads a YAML configuration, applying defaults for absent
// fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeBlackBox, ModeBlackBoxPlus:
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	switch c.Level {
	case LevelLibrary, LevelVersion:
	default:
		return fmt.Errorf("invalid level %q", c.Level)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("maxIterations must be positive, got %d", c.MaxIterations)
	}
	if c.TargetSuccessRate <= 0 || c.TargetSuccessRate > 1 {
		return fmt.Errorf("targetSuccessRate must be in (0,1], got %v", c.TargetSuccessRate)
	}
	if c.Mu <= 0 || c.Mu >= 1 {
		return fmt.Errorf("mu must be in (0,1), got %v", c.Mu)
	}
	if c.AcceptThreshold <= 0 || c.AcceptThreshold >= 1 {
		return fmt.Errorf("acceptThreshold must be in (0,1), got %v", c.AcceptThreshold)
	}
	if c.Level == LevelVersion && c.TargetVersion == "" {
		return fmt.Errorf("version_level requires targetVersion")
	}
	return nil
}
