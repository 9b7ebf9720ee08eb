package combat

import (
	"math"

	"github.com/kasuganosora/arena/game/stat"
)

// DamageOptions tune a single damage application.
type DamageOptions struct {
	AbilityID   string
	CanCrit     bool
	ForceCrit   bool
	Undodgeable bool
	// Origin is the id of the passive that produced this damage. Handlers
	// with the same id are not dispatched for it.
	Origin string
	// Reflected marks secondary damage (thorns, splash); it never
	// lifesteals.
	Reflected bool
}

// DamageResult is what ApplyDamage reports to the caller.
type DamageResult struct {
	Damage     int
	Absorbed   int
	IsCritical bool
	IsDodged   bool
}

// HealOptions tune a single heal.
type HealOptions struct {
	CanCrit bool
	Origin  string
}

// ApplyDamage resolves dodge, crit, mitigation and shields, subtracts HP
// and dispatches hooks: OnDodge on a dodge, otherwise OnDamageTaken on the
// target (or OnDeath when the hit is lethal) and OnDamageDealt on the
// source.
func (c *Character) ApplyDamage(amount float64, dt DamageType, source *Character, opts DamageOptions) DamageResult {
	if c.dead || amount <= 0 {
		return DamageResult{}
	}
	env := c.env
	ev := &DamageEvent{Target: c, Source: source, Raw: amount, Type: dt, Options: opts}

	if !opts.Undodgeable && c.roll(c.Stat(stat.DodgeChance)) {
		ev.IsDodged = true
		env.record(c, KindDodge, "dodged", map[string]any{"raw": amount, "ability": opts.AbilityID})
		c.dispatch("onDodge", opts.Origin, func(h PassiveHandler) error {
			if hk, ok := h.(DodgeHook); ok {
				return hk.OnDodge(ev)
			}
			return nil
		})
		env.notify(c)
		return DamageResult{IsDodged: true}
	}

	if source != nil && (opts.ForceCrit || (opts.CanCrit && source.roll(source.Stat(stat.CritChance)))) {
		ev.IsCritical = true
		amount *= source.critMultiplier()
	}

	dmg := int(math.Floor(amount * (1 - c.mitigation(dt))))
	if dmg < 0 {
		dmg = 0
	}
	absorbed := 0
	if c.shield > 0 {
		absorbed = min(c.shield, dmg)
		c.shield -= absorbed
		dmg -= absorbed
	}
	c.hp -= dmg
	if c.hp < 0 {
		c.hp = 0
	}
	ev.Damage, ev.Absorbed = dmg, absorbed

	env.record(c, KindDamage, string(dt), map[string]any{
		"damage": dmg, "absorbed": absorbed, "critical": ev.IsCritical,
		"source": sourceID(source), "ability": opts.AbilityID, "reflected": opts.Reflected,
	})
	env.notify(c)

	if c.hp == 0 {
		c.die(source)
	} else {
		c.dispatch("onDamageTaken", opts.Origin, func(h PassiveHandler) error {
			if hk, ok := h.(DamageTakenHook); ok {
				return hk.OnDamageTaken(ev)
			}
			return nil
		})
	}

	if source != nil {
		source.dispatch("onDamageDealt", opts.Origin, func(h PassiveHandler) error {
			if hk, ok := h.(DamageDealtHook); ok {
				return hk.OnDamageDealt(ev)
			}
			return nil
		})
		if ls := source.Stat(stat.Lifesteal); ls > 0 && dmg > 0 && !opts.Reflected {
			source.Heal(float64(dmg)*ls, source, HealOptions{Origin: opts.Origin})
		}
	}

	return DamageResult{Damage: dmg, Absorbed: absorbed, IsCritical: ev.IsCritical}
}

// Heal restores up to amount HP (floored, capped at missing HP) and
// returns the amount actually healed. Dead characters cannot be healed.
func (c *Character) Heal(amount float64, source *Character, opts HealOptions) int {
	if c.dead || amount <= 0 {
		return 0
	}
	crit := false
	if opts.CanCrit && source != nil && source.roll(source.Stat(stat.CritChance)) {
		crit = true
		amount *= source.critMultiplier()
	}
	heal := int(math.Floor(amount))
	if missing := c.MaxHP() - c.hp; heal > missing {
		heal = missing
	}
	if heal <= 0 {
		return 0
	}
	c.hp += heal
	c.env.record(c, KindHeal, "healed", map[string]any{
		"amount": heal, "critical": crit, "source": sourceID(source), "origin": opts.Origin,
	})
	c.env.notify(c)
	return heal
}

// Kill resolves death from an external call site. Repeated calls are
// no-ops.
func (c *Character) Kill(killer *Character) { c.die(killer) }

// die marks c dead, runs OnDeath exactly once, clears the ledger and
// tears the passive down.
func (c *Character) die(killer *Character) {
	if c.deathHandled {
		return
	}
	c.deathHandled = true
	c.dead = true
	c.hp = 0

	c.env.record(c, KindDeath, "died", map[string]any{"killer": sourceID(killer)})
	ev := &DeathEvent{Victim: c, Killer: killer}
	c.dispatch("onDeath", "", func(h PassiveHandler) error {
		if hk, ok := h.(DeathHook); ok {
			return hk.OnDeath(ev)
		}
		return nil
	})

	for _, e := range c.ledger.All() {
		c.removeEffect(e.ID, false, true)
	}
	c.shield = 0
	c.Dispose()
	c.env.notify(c)
}

// mitigation returns the fraction of damage prevented by the stat that
// guards against dt.
func (c *Character) mitigation(dt DamageType) float64 {
	var v float64
	switch dt {
	case Physical:
		v = c.Stat(stat.Armor)
	case Magical:
		v = c.Stat(stat.MagicalShield)
	default:
		return 0
	}
	r := v / 100
	return math.Max(0, math.Min(c.env.Rules.MitigationCap, r))
}

func (c *Character) critMultiplier() float64 {
	if m := c.Stat(stat.CritDamage); m > 0 {
		return m
	}
	return c.env.Rules.CritMultiplier
}

// roll succeeds with probability p. Zero and negative chances never draw
// from the RNG so seeded battles stay reproducible.
func (c *Character) roll(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.env.RNG.Float64() < p
}

func sourceID(c *Character) string {
	if c == nil {
		return ""
	}
	return c.id
}
