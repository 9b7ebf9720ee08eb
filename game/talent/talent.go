// Package talent applies unlocked talent modifications to a character
// before battle: base-stat patches and in-place ability patches.
package talent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/stat"
	"go.uber.org/zap"
)

var (
	ErrAlreadyApplied = errors.New("talent: already applied to character")
	ErrBattleStarted  = errors.New("talent: battle already started")
	ErrUnknownTalent  = errors.New("talent: unknown talent")
)

// Effect types. The type is informational; the presence of AbilityID is
// what selects an ability patch over a base-stat patch.
const (
	TypeStat    = "stat"
	TypeAbility = "ability"
)

// Effect is one modification carried by a talent.
type Effect struct {
	Type      string `json:"type" yaml:"type"`
	AbilityID string `json:"abilityId,omitempty" yaml:"abilityId,omitempty"`
	Property  string `json:"property" yaml:"property"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Value     any    `json:"value" yaml:"value"`
}

// Definition is a node of a talent tree.
type Definition struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Effects     []Effect `json:"effects" yaml:"effects"`
	Children    []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree maps talent ids to definitions.
type Tree map[string]Definition

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for id, d := range t {
		d.Effects = append([]Effect(nil), d.Effects...)
		d.Children = append([]string(nil), d.Children...)
		out[id] = d
	}
	return out
}

// Extension is a per-character hook that runs after the generic pass.
// It receives the unlocked ids in order and the character's abilities.
type Extension func(c *combat.Character, unlocked []string, abilities *combat.AbilitySet) error

// Applicator applies talent trees. Extensions are registered once at
// startup; Apply is safe to call from multiple goroutines on different
// characters.
type Applicator struct {
	mu         sync.RWMutex
	extensions map[string]Extension
	logger     *zap.Logger
}

// NewApplicator creates an Applicator.
func NewApplicator(logger *zap.Logger) *Applicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applicator{extensions: make(map[string]Extension), logger: logger}
}

// RegisterExtension binds ext to a character id, replacing any previous one.
func (a *Applicator) RegisterExtension(characterID string, ext Extension) {
	a.mu.Lock()
	a.extensions[characterID] = ext
	a.mu.Unlock()
}

// Report summarises one Apply call.
type Report struct {
	Applied  int
	Skipped  int
	Warnings []string
}

// Apply patches c with every effect of every unlocked talent, in order.
// Bad effects are skipped with a warning. After the pass the character's
// stats are recalculated once and HP/mana refilled to the new maxima.
func (a *Applicator) Apply(c *combat.Character, unlocked []string, tree Tree) (Report, error) {
	var rep Report
	if c.BattleStarted() {
		return rep, ErrBattleStarted
	}
	if !c.MarkTalentsApplied() {
		return rep, ErrAlreadyApplied
	}
	log := a.logger.With(zap.String("character", c.ID()))

	warn := func(msg string, fields ...zap.Field) {
		rep.Skipped++
		rep.Warnings = append(rep.Warnings, msg)
		log.Warn(msg, fields...)
	}

	for _, id := range unlocked {
		def, ok := tree[id]
		if !ok {
			warn(fmt.Sprintf("%v %q", ErrUnknownTalent, id), zap.String("talent", id))
			continue
		}
		for i, eff := range def.Effects {
			if err := applyEffect(c, eff); err != nil {
				warn(fmt.Sprintf("talent %s effect %d skipped: %v", id, i, err),
					zap.String("talent", id), zap.Int("effect", i), zap.Error(err))
				continue
			}
			rep.Applied++
		}
	}

	a.mu.RLock()
	ext := a.extensions[c.ID()]
	a.mu.RUnlock()
	if ext != nil {
		if err := ext(c, append([]string(nil), unlocked...), c.Abilities()); err != nil {
			warn(fmt.Sprintf("talent extension failed: %v", err), zap.Error(err))
		}
	}

	if err := c.RecalculateStats(); err != nil {
		return rep, fmt.Errorf("talent recalculate: %w", err)
	}
	c.Refill()
	log.Debug("talents applied",
		zap.Strings("talents", unlocked), zap.Int("applied", rep.Applied), zap.Int("skipped", rep.Skipped))
	return rep, nil
}

func applyEffect(c *combat.Character, eff Effect) error {
	op := stat.Op(eff.Operation)
	if op == "" {
		op = stat.OpSet
	}
	if eff.AbilityID != "" {
		ab := c.Abilities().Get(eff.AbilityID)
		if ab == nil {
			return fmt.Errorf("%w %q", combat.ErrUnknownAbility, eff.AbilityID)
		}
		return ab.Patch(eff.Property, op, eff.Value)
	}
	v, ok := stat.Number(eff.Value)
	if !ok {
		return fmt.Errorf("%w: %s=%v", combat.ErrNotNumeric, eff.Property, eff.Value)
	}
	return c.AdjustBase(eff.Property, op, v)
}
