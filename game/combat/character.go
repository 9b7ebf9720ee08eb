package combat

import (
	"context"
	"fmt"

	"github.com/kasuganosora/arena/game/stat"
	"go.uber.org/zap"
)

// Config holds the data needed to construct a Character.
type Config struct {
	ID    string
	Name  string
	Team  string
	Stats map[string]float64 // copied; becomes the base snapshot
	Env   *Env
}

// Character aggregates a stat block, an effect ledger, abilities and an
// optional passive handler. All mutation goes through its methods.
type Character struct {
	id, name, team string

	env       *Env
	stats     *stat.Block
	ledger    Ledger
	abilities AbilitySet
	passive   PassiveHandler

	hp     int
	mana   float64
	shield int

	dead           bool
	deathHandled   bool
	disposed       bool
	talentsApplied bool
	battleStarted  bool
}

// NewCharacter creates a character with full HP and mana. Derived stats
// equal base until the first recalculation.
func NewCharacter(cfg Config) *Character {
	env := cfg.Env
	if env == nil {
		env = NewEnv(Env{})
	}
	c := &Character{
		id:    cfg.ID,
		name:  cfg.Name,
		team:  cfg.Team,
		env:   env,
		stats: stat.NewBlock(env.Rules.Clamps),
	}
	c.stats.SetBase(cfg.Stats)
	c.Refill()
	return c
}

func (c *Character) ID() string   { return c.id }
func (c *Character) Name() string { return c.name }
func (c *Character) Team() string { return c.team }
func (c *Character) Env() *Env    { return c.env }

func (c *Character) HP() int          { return c.hp }
func (c *Character) MaxHP() int       { return int(c.stats.Get(stat.MaxHP)) }
func (c *Character) Mana() float64    { return c.mana }
func (c *Character) MaxMana() float64 { return c.stats.Get(stat.MaxMana) }
func (c *Character) Shield() int      { return c.shield }
func (c *Character) IsDead() bool     { return c.dead }
func (c *Character) IsAlive() bool    { return !c.dead }

// Stat returns the current (derived) value of name.
func (c *Character) Stat(name string) float64 { return c.stats.Get(name) }

// BaseStat returns the permanent value of name.
func (c *Character) BaseStat(name string) float64 { return c.stats.Base(name) }

// Stats returns a copy of the current stats.
func (c *Character) Stats() map[string]float64 { return c.stats.Snapshot() }

// BaseStats returns a copy of the base stats.
func (c *Character) BaseStats() map[string]float64 { return c.stats.BaseSnapshot() }

// HasStat reports whether name is one of the character's stats.
func (c *Character) HasStat(name string) bool { return c.stats.Has(name) }

// Abilities returns the character's ability collection.
func (c *Character) Abilities() *AbilitySet { return &c.abilities }

// Passive returns the attached handler, or nil.
func (c *Character) Passive() PassiveHandler { return c.passive }

// Effects returns the active effects in ledger order.
func (c *Character) Effects() []*Effect { return c.ledger.All() }

// Effect returns the active effect with id, or nil.
func (c *Character) Effect(id string) *Effect { return c.ledger.Get(id) }

// Buffs returns active non-debuff effects.
func (c *Character) Buffs() []*Effect { return c.ledger.Filter(false) }

// Debuffs returns active debuffs.
func (c *Character) Debuffs() []*Effect { return c.ledger.Filter(true) }

// Refill restores HP and mana to their maxima.
func (c *Character) Refill() {
	c.hp = c.MaxHP()
	c.mana = c.MaxMana()
}

// SetHP sets current HP clamped to [0, maxHp]. Reaching 0 kills.
func (c *Character) SetHP(v int) {
	if c.dead {
		return
	}
	if max := c.MaxHP(); v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	c.hp = v
	c.env.notify(c)
	if c.hp == 0 {
		c.die(nil)
	}
}

// SpendMana deducts amount, failing when not enough is left.
func (c *Character) SpendMana(amount float64) error {
	if amount > c.mana {
		return ErrNotEnoughMana
	}
	c.mana -= amount
	c.env.notify(c)
	return nil
}

// RestoreMana adds amount up to maxMana.
func (c *Character) RestoreMana(amount float64) {
	if c.dead || amount <= 0 {
		return
	}
	c.mana += amount
	if max := c.MaxMana(); c.mana > max {
		c.mana = max
	}
	c.env.notify(c)
}

// AddShield grants an absorb pool consumed before HP.
func (c *Character) AddShield(amount int) {
	if c.dead || amount <= 0 {
		return
	}
	c.shield += amount
	c.env.notify(c)
}

// AttachPassive binds h and calls Initialize once. A failing Initialize
// leaves the character without a passive.
func (c *Character) AttachPassive(h PassiveHandler) error {
	if h == nil {
		return nil
	}
	if c.passive != nil {
		return ErrPassiveAttached
	}
	ok := false
	guard(c.env, c, "initialize", h.ID(), func() error {
		if err := h.Initialize(c); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if ok {
		c.passive = h
	}
	return nil
}

// AdjustBase permanently patches a base stat. Callers must follow up with
// RecalculateStats.
func (c *Character) AdjustBase(name string, op stat.Op, v float64) error {
	return c.stats.AdjustBase(name, op, v)
}

// MarkTalentsApplied flips the talent guard; false means it was already set.
func (c *Character) MarkTalentsApplied() bool {
	if c.talentsApplied {
		return false
	}
	c.talentsApplied = true
	return true
}

// TalentsApplied reports whether talents have been applied.
func (c *Character) TalentsApplied() bool { return c.talentsApplied }

// BattleStarted reports whether StartBattle ran.
func (c *Character) BattleStarted() bool { return c.battleStarted }

// StartBattle freezes setup: stats are resolved and talents can no longer
// be applied.
func (c *Character) StartBattle() error {
	if c.battleStarted {
		return nil
	}
	c.battleStarted = true
	return c.RecalculateStats()
}

// RecalculateStats rebuilds derived stats from base and the ledger and
// notifies the observer.
func (c *Character) RecalculateStats() error {
	if err := c.recalc(); err != nil {
		return err
	}
	c.env.notify(c)
	return nil
}

func (c *Character) recalc() error {
	if err := c.stats.Recalculate(c.ledger.Modifiers()); err != nil {
		c.env.warn(c, "recalculate rejected", zap.Error(err))
		return err
	}
	if max := c.MaxHP(); c.hp > max {
		c.hp = max
	}
	if max := c.MaxMana(); c.mana > max {
		c.mana = max
	}
	return nil
}

// AddBuff attaches e as a buff.
func (c *Character) AddBuff(e *Effect) error { return c.addEffect(e, false) }

// AddDebuff attaches e as a debuff.
func (c *Character) AddDebuff(e *Effect) error { return c.addEffect(e, true) }

func (c *Character) addEffect(e *Effect, debuff bool) error {
	if e == nil {
		return ErrNilEffect
	}
	if e.ID == "" {
		return ErrEffectID
	}
	if c.dead {
		return ErrDead
	}
	dur := e.Duration
	if dur == 0 || dur < Permanent {
		c.env.warn(c, "effect duration out of range, using 1",
			zap.String("effect", e.ID), zap.Int("duration", dur))
		dur = 1
	}

	// A refresh only resets the existing entry's duration; e is left as
	// the caller built it.
	entry, refreshed := c.ledger.Get(e.ID), true
	if entry != nil {
		if entry.IsDebuff != debuff {
			return fmt.Errorf("%w: %s", ErrEffectKind, e.ID)
		}
		c.ledger.Refresh(entry, dur)
	} else {
		e.IsDebuff = debuff
		e.Duration = dur
		e.Modifiers = c.validModifiers(e)
		var err error
		if entry, refreshed, err = c.ledger.Add(e); err != nil {
			return fmt.Errorf("add effect %s: %w", e.ID, err)
		}
	}
	if !refreshed {
		c.runEffect("onApply", entry.OnApply, entry)
	}
	_ = c.recalc()

	c.env.record(c, KindEffectAdded, entry.Name, map[string]any{
		"effect": entry.ID, "debuff": debuff, "refreshed": refreshed, "turns": entry.Duration,
	})
	ev := &EffectEvent{Owner: c, Effect: entry, Refreshed: refreshed}
	c.dispatch("onBuffAdded", "", func(h PassiveHandler) error {
		if hk, ok := h.(BuffAddedHook); ok {
			return hk.OnBuffAdded(ev)
		}
		return nil
	})
	c.env.notify(c)
	return nil
}

// validModifiers drops modifiers naming unknown stats or kinds.
func (c *Character) validModifiers(e *Effect) []stat.Modifier {
	out := make([]stat.Modifier, 0, len(e.Modifiers))
	for _, m := range e.Modifiers {
		if !c.stats.Has(m.Stat) {
			c.env.warn(c, "effect modifier skipped: unknown stat",
				zap.String("effect", e.ID), zap.String("stat", m.Stat))
			continue
		}
		if m.Kind != stat.Additive && m.Kind != stat.Percentage {
			c.env.warn(c, "effect modifier skipped: unknown kind",
				zap.String("effect", e.ID), zap.Stringer("kind", m.Kind))
			continue
		}
		out = append(out, m)
	}
	return out
}

// RemoveEffect removes the effect with id regardless of remaining
// duration.
func (c *Character) RemoveEffect(id string) error {
	if !c.removeEffect(id, false, false) {
		return fmt.Errorf("%w: %s", ErrEffectNotFound, id)
	}
	c.env.notify(c)
	return nil
}

// DispelBuffs removes up to n buffs, newest first, and returns how many
// were removed.
func (c *Character) DispelBuffs(n int) int { return c.dispel(false, n) }

// DispelDebuffs removes up to n debuffs, newest first.
func (c *Character) DispelDebuffs(n int) int { return c.dispel(true, n) }

func (c *Character) dispel(debuff bool, n int) int {
	list := c.ledger.Filter(debuff)
	removed := 0
	for i := len(list) - 1; i >= 0 && removed < n; i-- {
		if list[i].IsPermanent() {
			continue
		}
		if c.removeEffect(list[i].ID, false, false) {
			removed++
		}
	}
	if removed > 0 {
		c.env.notify(c)
	}
	return removed
}

// removeEffect runs the removed transition: OnRemove, delete, recalc.
// quiet suppresses passive hooks during death cleanup.
func (c *Character) removeEffect(id string, expired, quiet bool) bool {
	e, ok, err := c.ledger.Detach(id)
	if !ok {
		return false
	}
	if err != nil {
		c.env.warn(c, "effect lifecycle", zap.String("effect", e.ID), zap.String("state", e.State()), zap.Error(err))
	}
	c.runEffect("onRemove", e.OnRemove, e)
	if err := Finish(e); err != nil {
		c.env.warn(c, "effect lifecycle", zap.String("effect", e.ID), zap.String("state", e.State()), zap.Error(err))
	}
	_ = c.recalc()

	c.env.record(c, KindEffectRemoved, e.Name, map[string]any{"effect": e.ID, "expired": expired})
	if quiet {
		return true
	}
	ev := &EffectEvent{Owner: c, Effect: e, Expired: expired}
	c.dispatch("onBuffRemoved", "", func(h PassiveHandler) error {
		if hk, ok := h.(BuffRemovedHook); ok {
			return hk.OnBuffRemoved(ev)
		}
		return nil
	})
	return true
}

// BeginTurn runs the owner's turn-start boundary: cooldowns tick, then
// the passive's OnTurnStart.
func (c *Character) BeginTurn(turn int) {
	if c.dead {
		return
	}
	c.abilities.tickCooldowns()
	c.dispatch("onTurnStart", "", func(h PassiveHandler) error {
		if hk, ok := h.(TurnStartHook); ok {
			return hk.OnTurnStart(c, turn)
		}
		return nil
	})
	c.env.notify(c)
}

// EndTurn runs the owner's turn-end boundary. The passive's OnTurnEnd runs
// first, then every effect is visited once in ledger order: its duration
// drops by one, OnTurnTick runs, and it is removed when no turns remain.
func (c *Character) EndTurn(turn int) {
	if c.dead {
		return
	}
	c.dispatch("onTurnEnd", "", func(h PassiveHandler) error {
		if hk, ok := h.(TurnEndHook); ok {
			return hk.OnTurnEnd(c, turn)
		}
		return nil
	})
	for _, e := range c.ledger.All() {
		if c.dead {
			break
		}
		if !c.ledger.Holds(e) {
			continue
		}
		expired := c.ledger.decrement(e)
		c.runEffect("onTurnTick", e.OnTurnTick, e)
		if expired && !c.dead {
			c.removeEffect(e.ID, true, false)
		}
	}
	c.env.notify(c)
}

// IsTargetableBy applies targeting restrictions from active effects.
func (c *Character) IsTargetableBy(other *Character) bool {
	if other == nil || other == c {
		return true
	}
	if other.team != c.team {
		return !c.ledger.HasRestriction(UntargetableByEnemies)
	}
	return !c.ledger.HasRestriction(UntargetableByAllies)
}

// CastRequest selects an ability and its targets.
type CastRequest struct {
	AbilityID string
	Targets   []*Character
	Allies    []*Character
	Enemies   []*Character
}

// UseAbility validates and executes an ability. Mana is spent and the
// cooldown starts before the behaviour runs. Cooldown counts owner turn
// starts until the ability is ready again.
func (c *Character) UseAbility(ctx context.Context, req CastRequest) error {
	if c.dead {
		return ErrDead
	}
	a := c.abilities.Get(req.AbilityID)
	if a == nil {
		return fmt.Errorf("%w %q", ErrUnknownAbility, req.AbilityID)
	}
	if !a.Ready() {
		return fmt.Errorf("%w: %s (%d)", ErrOnCooldown, a.ID, a.cooldownLeft)
	}
	if a.ManaCost > c.mana {
		return fmt.Errorf("%w: %s needs %.0f", ErrNotEnoughMana, a.ID, a.ManaCost)
	}
	targets := make([]*Character, 0, len(req.Targets))
	for _, t := range req.Targets {
		if t != nil && t.IsAlive() && t.IsTargetableBy(c) {
			targets = append(targets, t)
		}
	}
	if len(req.Targets) > 0 && len(targets) == 0 {
		return ErrNoTargets
	}

	c.mana -= a.ManaCost
	a.cooldownLeft = a.Cooldown

	cast := &Cast{Ability: a, Caster: c, Targets: targets, Allies: req.Allies, Enemies: req.Enemies}
	c.env.record(c, KindCast, a.Name, map[string]any{"ability": a.ID, "targets": len(targets)})
	ev := &CastEvent{Caster: c, Ability: a, Targets: targets}
	c.dispatch("onAbilityCast", "", func(h PassiveHandler) error {
		if hk, ok := h.(AbilityCastHook); ok {
			return hk.OnAbilityCast(ev)
		}
		return nil
	})

	// Once started an ability runs to completion; only pauses between
	// hits may wait, and battle cancellation does not cut them short.
	var err error
	if a.Behavior != nil {
		err = a.Behavior(context.WithoutCancel(ctx), cast)
	}
	c.env.notify(c)
	return err
}

// Dispose tears the passive down. Safe to call more than once.
func (c *Character) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	if d, ok := c.passive.(Disposer); ok {
		guard(c.env, c, "dispose", c.passive.ID(), func() error {
			d.Dispose()
			return nil
		})
	}
}
