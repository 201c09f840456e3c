package attack_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshade/libshade/attack"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*attack.Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *attack.Config) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *attack.Config) { c.Mode = "grey_box" },
			wantErr: "invalid mode",
		},
		{
			name:    "unknown level",
			mutate:  func(c *attack.Config) { c.Level = "method_level" },
			wantErr: "invalid level",
		},
		{
			name:    "zero iterations",
			mutate:  func(c *attack.Config) { c.MaxIterations = 0 },
			wantErr: "maxIterations",
		},
		{
			name:    "success rate above one",
			mutate:  func(c *attack.Config) { c.TargetSuccessRate = 1.5 },
			wantErr: "targetSuccessRate",
		},
		{
			name:    "mu out of range",
			mutate:  func(c *attack.Config) { c.Mu = 1 },
			wantErr: "mu",
		},
		{
			name:    "accept threshold out of range",
			mutate:  func(c *attack.Config) { c.AcceptThreshold = 0 },
			wantErr: "acceptThreshold",
		},
		{
			name: "version level without target version",
			mutate: func(c *attack.Config) {
				c.Level = attack.LevelVersion
				c.TargetVersion = ""
			},
			wantErr: "targetVersion",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := attack.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attack.yaml")
	data := `
mode: black_box_plus
maxIterations: 25
mu: 0.3
collaboratorLimit: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := attack.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, attack.ModeBlackBoxPlus, cfg.Mode)
	assert.Equal(t, 25, cfg.MaxIterations)
	assert.InDelta(t, 0.3, cfg.Mu, 1e-9)
	assert.Equal(t, attack.Duration(90*time.Second), cfg.CollaboratorLimit)

	// absent fields keep their defaults
	defaults := attack.DefaultConfig()
	assert.Equal(t, defaults.Level, cfg.Level)
	assert.Equal(t, defaults.SwarmSize, cfg.SwarmSize)
	assert.InDelta(t, defaults.AcceptThreshold, cfg.AcceptThreshold, 1e-9)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := attack.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: grey_box\n"), 0o600))
	_, err := attack.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}
