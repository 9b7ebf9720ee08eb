package content

import (
	"context"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/registry"
	"github.com/kasuganosora/arena/game/stat"
)

// Ability behaviour ids.
const (
	MultiStrike = "multi_strike"
	ArmorBreak  = "armor_break"
	ShieldWall  = "shield_wall"
	Venom       = "venom"
	Vanish      = "vanish"
	Cleanse     = "cleanse"
)

// Effect builder names.
const (
	EffectArmorBreak = "armor_break"
	EffectPoison     = "poison"
	EffectFortify    = "fortify"
	EffectStealth    = "stealth"
	EffectRage       = "rage"
)

func registerEffects(f *registry.AbilityFactory) {
	// Shared id: recasting refreshes instead of stacking.
	f.RegisterEffect(EffectArmorBreak, func(ab *combat.Ability) *combat.Effect {
		return &combat.Effect{
			ID: EffectArmorBreak, Name: "Armor Break", Icon: "armor_break",
			Duration: turns(ab, 2),
			Modifiers: []stat.Modifier{
				{Stat: stat.Armor, Value: -ab.Float("armorBreak", 0.15), Kind: stat.Percentage},
			},
		}
	})

	// Each application stacks on its own.
	f.RegisterEffect(EffectPoison, func(ab *combat.Ability) *combat.Effect {
		dmg := ab.Float("tickDamage", 20)
		return &combat.Effect{
			ID: combat.StackID(EffectPoison), Name: "Poison", Icon: "poison",
			Duration: turns(ab, 3),
			OnTurnTick: func(owner *combat.Character, e *combat.Effect) {
				owner.ApplyDamage(dmg, combat.Pure, nil, combat.DamageOptions{Undodgeable: true, Origin: e.ID})
			},
		}
	})

	f.RegisterEffect(EffectFortify, func(ab *combat.Ability) *combat.Effect {
		return &combat.Effect{
			ID: EffectFortify, Name: "Fortify", Icon: "fortify",
			Duration: turns(ab, 2),
			Modifiers: []stat.Modifier{
				{Stat: stat.Armor, Value: ab.Float("armor", 30), Kind: stat.Additive},
			},
		}
	})

	f.RegisterEffect(EffectStealth, func(ab *combat.Ability) *combat.Effect {
		return &combat.Effect{
			ID: EffectStealth, Name: "Stealth", Icon: "stealth",
			Duration:    turns(ab, 1),
			Restriction: combat.UntargetableByEnemies,
			Modifiers: []stat.Modifier{
				{Stat: stat.DodgeChance, Value: ab.Float("dodge", 0.2), Kind: stat.Additive},
			},
		}
	})

	f.RegisterEffect(EffectRage, rageEffect)
}

// rageEffect refreshes rather than stacks.
func rageEffect(ab *combat.Ability) *combat.Effect {
	return &combat.Effect{
		ID: EffectRage, Name: "Rage", Icon: "rage",
		Duration: turns(ab, 1),
		Modifiers: []stat.Modifier{
			{Stat: stat.PhysicalDamage, Value: ab.Float("rage", 0.25), Kind: stat.Percentage},
		},
	}
}

func turns(ab *combat.Ability, def int) int {
	if ab != nil && ab.Duration != 0 {
		return ab.Duration
	}
	return def
}

func registerBehaviors(f *registry.AbilityFactory) {
	f.RegisterBehavior(MultiStrike, multiStrike)
	f.RegisterBehavior(ArmorBreak, strikeThen(f, EffectArmorBreak))
	f.RegisterBehavior(Venom, strikeThen(f, EffectPoison))
	f.RegisterBehavior(ShieldWall, shieldWall(f))
	f.RegisterBehavior(Vanish, selfBuff(f, EffectStealth))
	f.RegisterBehavior(Cleanse, cleanse)
}

// multiStrike hits each target Hits times with HitDelay between hits. A
// dead target stops receiving hits; the others continue. With the
// repeatOnCrit flag the first critical hit on a target earns one extra hit.
func multiStrike(ctx context.Context, cast *combat.Cast) error {
	ab := cast.Ability
	for _, t := range cast.Targets {
		hits := max(ab.Hits, 1)
		bonus := ab.Bool("repeatOnCrit")
		for i := 0; i < hits && t.IsAlive(); i++ {
			if i > 0 {
				if err := cast.Pause(ctx, ab.HitDelay); err != nil {
					return err
				}
			}
			amt, err := cast.Amount(ctx, t)
			if err != nil {
				return err
			}
			res := t.ApplyDamage(amt, ab.Type, cast.Caster, cast.Options())
			if res.IsCritical && bonus {
				bonus = false
				hits++
			}
		}
	}
	return nil
}

// strikeThen damages each target and applies the named debuff to the ones
// still alive.
func strikeThen(f *registry.AbilityFactory, effect string) combat.Behavior {
	return func(ctx context.Context, cast *combat.Cast) error {
		for _, t := range cast.Targets {
			amt, err := cast.Amount(ctx, t)
			if err != nil {
				return err
			}
			res := t.ApplyDamage(amt, cast.Ability.Type, cast.Caster, cast.Options())
			if res.IsDodged || t.IsDead() {
				continue
			}
			e, err := f.Effect(effect, cast.Ability)
			if err != nil {
				return err
			}
			e.SourceID = cast.Caster.ID()
			if err := t.AddDebuff(e); err != nil {
				return err
			}
		}
		return nil
	}
}

func shieldWall(f *registry.AbilityFactory) combat.Behavior {
	return func(ctx context.Context, cast *combat.Cast) error {
		targets := cast.Targets
		if len(targets) == 0 {
			targets = []*combat.Character{cast.Caster}
		}
		for _, t := range targets {
			t.AddShield(int(cast.Ability.Float("shield", 100)))
			e, err := f.Effect(EffectFortify, cast.Ability)
			if err != nil {
				return err
			}
			e.SourceID = cast.Caster.ID()
			if err := t.AddBuff(e); err != nil {
				return err
			}
		}
		return nil
	}
}

func selfBuff(f *registry.AbilityFactory, effect string) combat.Behavior {
	return func(ctx context.Context, cast *combat.Cast) error {
		e, err := f.Effect(effect, cast.Ability)
		if err != nil {
			return err
		}
		e.SourceID = cast.Caster.ID()
		return cast.Caster.AddBuff(e)
	}
}

// cleanse removes up to "count" debuffs from each target (the caster when
// no target is given) and heals by the ability amount.
func cleanse(ctx context.Context, cast *combat.Cast) error {
	targets := cast.Targets
	if len(targets) == 0 {
		targets = []*combat.Character{cast.Caster}
	}
	n := int(cast.Ability.Float("count", 1))
	for _, t := range targets {
		t.DispelDebuffs(n)
		if cast.Ability.Power > 0 {
			amt, err := cast.Amount(ctx, t)
			if err != nil {
				return err
			}
			t.Heal(amt, cast.Caster, combat.HealOptions{})
		}
	}
	return nil
}
