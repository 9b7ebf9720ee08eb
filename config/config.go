package config

import (
	"time"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/stat"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"database"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Script   ScriptConfig   `mapstructure:"script"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Battle   BattleConfig   `mapstructure:"battle"`
}

type ServerConfig struct {
	Debug bool `mapstructure:"debug"`
}

type DataConfig struct {
	Characters string `mapstructure:"characters"`
	Abilities  string `mapstructure:"abilities"`
	Talents    string `mapstructure:"talents"` // .json, .yaml or empty
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql | memory | none
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

// ClampConfig bounds one stat. Clamps are a list rather than a map
// because viper lowercases map keys and stat names are camelCase.
type ClampConfig struct {
	Stat string  `mapstructure:"stat"`
	Min  float64 `mapstructure:"min"`
	Max  float64 `mapstructure:"max"`
}

type CombatConfig struct {
	MitigationCap  float64       `mapstructure:"mitigation_cap"`
	CritMultiplier float64       `mapstructure:"crit_multiplier"`
	MaxHookDepth   int           `mapstructure:"max_hook_depth"`
	Clamps         []ClampConfig `mapstructure:"clamps"`
}

// Rules converts the combat section into battle rules.
func (c CombatConfig) Rules() combat.Rules {
	r := combat.Rules{
		MitigationCap:  c.MitigationCap,
		CritMultiplier: c.CritMultiplier,
		MaxHookDepth:   c.MaxHookDepth,
	}
	if len(c.Clamps) > 0 {
		r.Clamps = make(map[string]stat.ClampRule, len(c.Clamps))
		for _, cl := range c.Clamps {
			r.Clamps[cl.Stat] = stat.ClampRule{Min: cl.Min, Max: cl.Max}
		}
	}
	return r
}

type ScriptConfig struct {
	VMPoolSize int           `mapstructure:"vm_pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type JournalConfig struct {
	Buffer        int           `mapstructure:"buffer"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type BattleConfig struct {
	MaxTurns int `mapstructure:"max_turns"`
	// PaceSpeed scales ability pauses; 0 skips them.
	PaceSpeed float64 `mapstructure:"pace_speed"`
}

// Load reads config from the given YAML file path. An empty path uses
// the defaults alone.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.debug", false)
	v.SetDefault("data.characters", "./data/characters.json")
	v.SetDefault("data.abilities", "./data/abilities.json")
	v.SetDefault("data.talents", "./data/talents.yaml")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/arena.db")
	v.SetDefault("database.mysql_max_open", 10)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("combat.mitigation_cap", 0.8)
	v.SetDefault("combat.crit_multiplier", 1.5)
	v.SetDefault("combat.max_hook_depth", 8)
	v.SetDefault("combat.clamps", []map[string]any{
		{"stat": stat.DodgeChance, "min": 0, "max": 1},
		{"stat": stat.CritChance, "min": 0, "max": 1},
	})
	v.SetDefault("script.vm_pool_size", 4)
	v.SetDefault("script.timeout", "100ms")
	v.SetDefault("journal.buffer", 1024)
	v.SetDefault("journal.flush_interval", "2s")
	v.SetDefault("battle.max_turns", 100)
	v.SetDefault("battle.pace_speed", 0)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
