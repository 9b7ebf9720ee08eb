package resource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeJSON writes v as JSON to path/filename.
func writeJSON(t *testing.T, dir, filename string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	p := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(p, data, 0644))
	return p
}

// setupDataDir creates a temp directory with one knight, two abilities
// and a one-node talent tree.
func setupDataDir(t *testing.T) (chars, abilities, talents string) {
	t.Helper()
	dir := t.TempDir()

	chars = writeJSON(t, dir, "characters.json", []map[string]interface{}{
		{
			"id":        "knight",
			"name":      "Knight",
			"stats":     map[string]float64{"maxHp": 1000, "armor": 100, "speed": 8},
			"abilities": []string{"slash", "guard"},
			"passive":   map[string]interface{}{"id": "angry_bull", "name": "Angry Bull", "params": map[string]interface{}{"armorPerHit": 2}},
			"talents":   []string{"iron_skin"},
		},
	})
	abilities = writeJSON(t, dir, "abilities.json", []interface{}{
		nil,
		map[string]interface{}{"id": "slash", "name": "Slash", "type": "physical", "formula": "a.physicalDamage", "power": 1.2, "cooldown": 1},
		map[string]interface{}{"id": "guard", "name": "Guard", "target": "self", "duration": 2, "params": map[string]interface{}{"shield": 150}},
	})
	talents = writeJSON(t, dir, "talents.json", map[string]interface{}{
		"iron_skin": map[string]interface{}{
			"name":    "Iron Skin",
			"effects": []map[string]interface{}{{"type": "stat", "property": "armor", "operation": "add", "value": 20}},
		},
	})
	return chars, abilities, talents
}

// ---- Load() success path ----

func TestLoader_Load_Success(t *testing.T) {
	c, a, tl := setupDataDir(t)
	rl := NewLoader(c, a, tl)
	require.NoError(t, rl.Load())

	require.Len(t, rl.Characters, 1)
	require.Len(t, rl.Abilities, 2, "null entries are dropped")

	k := rl.Characters[0]
	assert.Equal(t, "knight", k.ID)
	assert.Equal(t, 100.0, k.Stats["armor"])
	require.NotNil(t, k.Passive)
	assert.Equal(t, "angry_bull", k.Passive.ID)
	assert.Equal(t, []string{"iron_skin"}, k.Talents)

	slash := rl.AbilityByID("slash")
	require.NotNil(t, slash)
	assert.Equal(t, "a.physicalDamage", slash.Formula)
	assert.Equal(t, 1.2, slash.Power)

	def, ok := rl.Talents["iron_skin"]
	require.True(t, ok)
	assert.Equal(t, "iron_skin", def.ID)
	assert.Equal(t, 20.0, def.Effects[0].Value)
}

func TestLoader_Load_NoTalents(t *testing.T) {
	c, a, _ := setupDataDir(t)
	rl := NewLoader(c, a, "")
	require.NoError(t, rl.Load())
	assert.Empty(t, rl.Talents)
}

// ---- Load() error paths ----

func TestLoader_Load_MissingFile(t *testing.T) {
	_, a, tl := setupDataDir(t)
	rl := NewLoader(filepath.Join(t.TempDir(), "nope.json"), a, tl)
	assert.Error(t, rl.Load())
}

func TestLoader_Load_BadJSON(t *testing.T) {
	c, a, _ := setupDataDir(t)
	bad := filepath.Join(t.TempDir(), "talents.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	rl := NewLoader(c, a, bad)
	assert.Error(t, rl.Load())
}

func TestLoader_Load_UnknownAbilityReference(t *testing.T) {
	dir := t.TempDir()
	c := writeJSON(t, dir, "characters.json", []map[string]interface{}{
		{"id": "mage", "stats": map[string]float64{"maxHp": 10}, "abilities": []string{"fireball"}},
	})
	a := writeJSON(t, dir, "abilities.json", []interface{}{})
	err := NewLoader(c, a, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fireball")
}

func TestLoader_Load_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	c := writeJSON(t, dir, "characters.json", []interface{}{})
	a := writeJSON(t, dir, "abilities.json", []map[string]interface{}{{"id": "x"}, {"id": "x"}})
	assert.Error(t, NewLoader(c, a, "").Load())
}
