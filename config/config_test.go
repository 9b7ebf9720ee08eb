package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/arena/game/stat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 100, cfg.Battle.MaxTurns)
	assert.Equal(t, 100*time.Millisecond, cfg.Script.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Journal.FlushInterval)

	rules := cfg.Combat.Rules()
	assert.Equal(t, 0.8, rules.MitigationCap)
	assert.Equal(t, 8, rules.MaxHookDepth)
	assert.Equal(t, stat.ClampRule{Min: 0, Max: 1}, rules.Clamps[stat.DodgeChance])
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  mode: none
combat:
  mitigation_cap: 0.6
  clamps:
    - { stat: dodgeChance, min: 0, max: 0.5 }
battle:
  max_turns: 20
script:
  timeout: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Database.Mode)
	assert.Equal(t, 20, cfg.Battle.MaxTurns)
	assert.Equal(t, 250*time.Millisecond, cfg.Script.Timeout)
	assert.Equal(t, "./data/arena.db", cfg.Database.SQLitePath)

	rules := cfg.Combat.Rules()
	assert.Equal(t, 0.6, rules.MitigationCap)
	require.Len(t, rules.Clamps, 1)
	assert.Equal(t, 0.5, rules.Clamps[stat.DodgeChance].Max)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
