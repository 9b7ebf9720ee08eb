// Package registry binds data-driven ids to behaviour: ability behaviours
// and reusable effect builders, passive handlers and custom character
// constructors. Registration happens once at startup; lookups afterwards
// are read-only and safe for concurrent use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/resource"
	"go.uber.org/zap"
)

var (
	// ErrUnknownAbility is returned by AbilityFactory.Create for ids with no
	// definition. It matches combat.ErrUnknownAbility.
	ErrUnknownAbility = combat.ErrUnknownAbility
	ErrUnknownEffect  = errors.New("registry: unknown effect")
)

// Registry groups the three factories.
type Registry struct {
	Abilities  *AbilityFactory
	Passives   *PassiveFactory
	Characters *CharacterFactory
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	ab := &AbilityFactory{
		defs:      make(map[string]*resource.AbilityData),
		behaviors: make(map[string]combat.Behavior),
		effects:   make(map[string]EffectBuilder),
	}
	ps := &PassiveFactory{ctors: make(map[string]PassiveConstructor), logger: logger}
	return &Registry{
		Abilities:  ab,
		Passives:   ps,
		Characters: &CharacterFactory{abilities: ab, passives: ps, ctors: make(map[string]Constructor), logger: logger},
	}
}

// ---- Abilities ----

// EffectBuilder creates a fresh effect for one application of ab.
type EffectBuilder func(ab *combat.Ability) *combat.Effect

// AbilityFactory creates per-character ability instances from definitions.
type AbilityFactory struct {
	mu        sync.RWMutex
	defs      map[string]*resource.AbilityData
	behaviors map[string]combat.Behavior
	effects   map[string]EffectBuilder
}

// Define stores (a copy of) each definition, replacing existing ids.
func (f *AbilityFactory) Define(defs ...*resource.AbilityData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range defs {
		f.defs[d.ID] = d.Clone()
	}
}

// RegisterBehavior binds code to a behaviour key. A definition selects it
// through its Behavior field or, when that is empty, its id. Abilities
// with no match use DefaultBehavior.
func (f *AbilityFactory) RegisterBehavior(id string, b combat.Behavior) {
	f.mu.Lock()
	f.behaviors[id] = b
	f.mu.Unlock()
}

// RegisterEffect names a reusable effect builder.
func (f *AbilityFactory) RegisterEffect(name string, b EffectBuilder) {
	f.mu.Lock()
	f.effects[name] = b
	f.mu.Unlock()
}

// Effect builds a new effect from the builder registered under name.
func (f *AbilityFactory) Effect(name string, ab *combat.Ability) (*combat.Effect, error) {
	f.mu.RLock()
	b, ok := f.effects[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEffect, name)
	}
	return b(ab), nil
}

// Has reports whether id is defined.
func (f *AbilityFactory) Has(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.defs[id]
	return ok
}

// Create returns a new ability instance for id.
func (f *AbilityFactory) Create(id string) (*combat.Ability, error) {
	f.mu.RLock()
	d, ok := f.defs[id]
	var b combat.Behavior
	if ok {
		key := d.Behavior
		if key == "" {
			key = d.ID
		}
		b = f.behaviors[key]
	}
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAbility, id)
	}
	if b == nil {
		b = DefaultBehavior
	}
	ab := &combat.Ability{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Type:        combat.DamageType(d.Type),
		Target:      combat.TargetKind(d.Target),
		Formula:     d.Formula,
		Power:       d.Power,
		Cooldown:    d.Cooldown,
		ManaCost:    d.ManaCost,
		Hits:        d.Hits,
		HitDelay:    time.Duration(d.HitDelayMs) * time.Millisecond,
		Duration:    d.Duration,
		Params:      d.Clone().Params,
		Behavior:    b,
	}
	if ab.Type == "" {
		ab.Type = combat.Physical
	}
	if ab.Target == "" {
		ab.Target = combat.TargetEnemy
	}
	if ab.Params == nil {
		ab.Params = make(map[string]any)
	}
	return ab, nil
}

// DefaultBehavior heals friendly targets and damages hostile ones by the
// ability's Amount.
func DefaultBehavior(ctx context.Context, cast *combat.Cast) error {
	for _, t := range cast.Targets {
		amt, err := cast.Amount(ctx, t)
		if err != nil {
			return err
		}
		if t.Team() == cast.Caster.Team() {
			t.Heal(amt, cast.Caster, combat.HealOptions{CanCrit: true})
			continue
		}
		t.ApplyDamage(amt, cast.Ability.Type, cast.Caster, cast.Options())
	}
	return nil
}

// ---- Passives ----

// PassiveConstructor builds a handler from the character's passive data.
type PassiveConstructor func(data *resource.PassiveData) combat.PassiveHandler

// PassiveFactory maps passive ids to handler constructors.
type PassiveFactory struct {
	mu     sync.RWMutex
	ctors  map[string]PassiveConstructor
	logger *zap.Logger
}

// Register binds a constructor to a passive id.
func (f *PassiveFactory) Register(id string, ctor PassiveConstructor) {
	f.mu.Lock()
	f.ctors[id] = ctor
	f.mu.Unlock()
}

// CreateHandler returns a handler for data, or nil when no constructor is
// registered. A passive without a handler is purely descriptive.
func (f *PassiveFactory) CreateHandler(data *resource.PassiveData) combat.PassiveHandler {
	if data == nil || data.ID == "" {
		return nil
	}
	f.mu.RLock()
	ctor, ok := f.ctors[data.ID]
	f.mu.RUnlock()
	if !ok {
		f.logger.Debug("passive has no handler", zap.String("passive", data.ID))
		return nil
	}
	return ctor(data)
}

// ---- Characters ----

// Constructor creates the bare character for one character id.
type Constructor func(cfg combat.Config, data *resource.CharacterData) *combat.Character

// CharacterFactory builds characters from data.
type CharacterFactory struct {
	mu        sync.RWMutex
	ctors     map[string]Constructor
	abilities *AbilityFactory
	passives  *PassiveFactory
	logger    *zap.Logger
}

// Register binds a custom constructor to a character id.
func (f *CharacterFactory) Register(id string, ctor Constructor) {
	f.mu.Lock()
	f.ctors[id] = ctor
	f.mu.Unlock()
}

// Create builds a character on team from a copy of data: stats become
// the base snapshot, abilities are created fresh and the passive (if it
// has a handler) is attached and initialised.
func (f *CharacterFactory) Create(data *resource.CharacterData, team string, env *combat.Env) (*combat.Character, error) {
	d := data.Clone()
	cfg := combat.Config{ID: d.ID, Name: d.Name, Team: team, Stats: d.Stats, Env: env}

	f.mu.RLock()
	ctor := f.ctors[d.ID]
	f.mu.RUnlock()

	var c *combat.Character
	if ctor != nil {
		c = ctor(cfg, d)
	} else {
		c = combat.NewCharacter(cfg)
	}

	for _, id := range d.Abilities {
		ab, err := f.abilities.Create(id)
		if err != nil {
			return nil, fmt.Errorf("character %s: %w", d.ID, err)
		}
		c.Abilities().Add(ab)
	}
	if h := f.passives.CreateHandler(d.Passive); h != nil {
		if err := c.AttachPassive(h); err != nil {
			return nil, fmt.Errorf("character %s: %w", d.ID, err)
		}
	}
	f.logger.Debug("character created",
		zap.String("character", d.ID), zap.String("team", team), zap.Int("abilities", c.Abilities().Len()))
	return c, nil
}
