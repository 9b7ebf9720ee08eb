// Package resource loads the data files that describe characters,
// abilities and talent trees.
package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kasuganosora/arena/game/talent"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ---- Data Structures ----

// PassiveData names a character's passive and carries its tuning values.
type PassiveData struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Params      map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// CharacterData is one entry of characters.json.
type CharacterData struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Stats     map[string]float64 `json:"stats"`
	Abilities []string           `json:"abilities"`
	Passive   *PassiveData       `json:"passive,omitempty"`
	// Talents lists the talent ids unlocked by default.
	Talents []string `json:"talents,omitempty"`
}

// Clone returns a deep copy so per-character mutation never reaches the
// loaded data.
func (d *CharacterData) Clone() *CharacterData {
	cp := *d
	cp.Stats = make(map[string]float64, len(d.Stats))
	for k, v := range d.Stats {
		cp.Stats[k] = v
	}
	cp.Abilities = append([]string(nil), d.Abilities...)
	cp.Talents = append([]string(nil), d.Talents...)
	if d.Passive != nil {
		p := *d.Passive
		p.Params = cloneParams(d.Passive.Params)
		cp.Passive = &p
	}
	return &cp
}

// AbilityData is one entry of abilities.json.
type AbilityData struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`   // physical, magical, pure
	Target      string         `json:"target"` // enemy, ally, self, all_enemies, all_allies
	// Behavior selects registered code; empty means the ability id.
	Behavior    string         `json:"behavior,omitempty"`
	Formula     string         `json:"formula"`
	Power       float64        `json:"power"`
	Cooldown    int            `json:"cooldown"`
	ManaCost    float64        `json:"manaCost"`
	Hits        int            `json:"hits"`
	HitDelayMs  int            `json:"hitDelayMs"`
	Duration    int            `json:"duration"`
	Params      map[string]any `json:"params,omitempty"`
}

// Clone returns a deep copy.
func (d *AbilityData) Clone() *AbilityData {
	cp := *d
	cp.Params = cloneParams(d.Params)
	return &cp
}

func cloneParams(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- Loader ----

// ResourceLoader holds all loaded data in memory.
type ResourceLoader struct {
	CharactersPath string
	AbilitiesPath  string
	TalentsPath    string

	Characters []*CharacterData
	Abilities  []*AbilityData
	Talents    talent.Tree
}

// NewLoader creates a ResourceLoader for the given files. An empty
// talents path loads an empty tree.
func NewLoader(characters, abilities, talents string) *ResourceLoader {
	return &ResourceLoader{
		CharactersPath: characters,
		AbilitiesPath:  abilities,
		TalentsPath:    talents,
		Talents:        talent.Tree{},
	}
}

// Load reads every data file concurrently and validates cross references.
func (rl *ResourceLoader) Load() error {
	var g errgroup.Group
	g.Go(rl.loadCharacters)
	g.Go(rl.loadAbilities)
	g.Go(rl.loadTalents)
	if err := g.Wait(); err != nil {
		return err
	}
	return rl.validate()
}

func loadJSONArray[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	var arr []*T
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	out := arr[:0]
	for _, v := range arr {
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (rl *ResourceLoader) loadCharacters() error {
	var err error
	rl.Characters, err = loadJSONArray[CharacterData](rl.CharactersPath)
	return err
}

func (rl *ResourceLoader) loadAbilities() error {
	var err error
	rl.Abilities, err = loadJSONArray[AbilityData](rl.AbilitiesPath)
	return err
}

func (rl *ResourceLoader) loadTalents() error {
	if rl.TalentsPath == "" {
		return nil
	}
	tree, err := LoadTalents(rl.TalentsPath)
	if err != nil {
		return err
	}
	rl.Talents = tree
	return nil
}

// LoadTalents reads a talent tree from a JSON or YAML file, chosen by
// extension. Definitions without an explicit id take their map key.
func LoadTalents(path string) (talent.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	tree := talent.Tree{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &tree)
	default:
		err = json.Unmarshal(data, &tree)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	for id, def := range tree {
		if def.ID == "" {
			def.ID = id
			tree[id] = def
		}
	}
	return tree, nil
}

// validate rejects duplicate ids and character abilities that no
// ability entry defines.
func (rl *ResourceLoader) validate() error {
	abilities := make(map[string]bool, len(rl.Abilities))
	for _, a := range rl.Abilities {
		if a.ID == "" {
			return fmt.Errorf("resource: ability with empty id")
		}
		if abilities[a.ID] {
			return fmt.Errorf("resource: duplicate ability %q", a.ID)
		}
		abilities[a.ID] = true
	}
	seen := make(map[string]bool, len(rl.Characters))
	for _, c := range rl.Characters {
		if c.ID == "" {
			return fmt.Errorf("resource: character with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("resource: duplicate character %q", c.ID)
		}
		seen[c.ID] = true
		for _, id := range c.Abilities {
			if !abilities[id] {
				return fmt.Errorf("resource: character %s references unknown ability %q", c.ID, id)
			}
		}
	}
	return nil
}

// CharacterByID returns a copy of the character entry with id, or nil.
func (rl *ResourceLoader) CharacterByID(id string) *CharacterData {
	for _, c := range rl.Characters {
		if c.ID == id {
			return c.Clone()
		}
	}
	return nil
}

// AbilityByID returns a copy of the ability entry with id, or nil.
func (rl *ResourceLoader) AbilityByID(id string) *AbilityData {
	for _, a := range rl.Abilities {
		if a.ID == id {
			return a.Clone()
		}
	}
	return nil
}
