package content

import (
	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/registry"
	"github.com/kasuganosora/arena/game/stat"
	"github.com/kasuganosora/arena/resource"
	"go.uber.org/zap"
)

// Passive ids.
const (
	Vampiric  = "vampiric"
	Thorns    = "thorns"
	AngryBull = "angry_bull"
	Martyr    = "martyr"
	Berserker = "berserker"
)

func param(data *resource.PassiveData, name string, def float64) float64 {
	if data == nil {
		return def
	}
	switch v := data.Params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// vampiric heals its owner for a share of every hit taken.
type vampiric struct {
	owner *combat.Character
	ratio float64
}

func newVampiric(d *resource.PassiveData) combat.PassiveHandler {
	return &vampiric{ratio: param(d, "ratio", 0.5)}
}

func (p *vampiric) ID() string { return Vampiric }

func (p *vampiric) Initialize(c *combat.Character) error {
	p.owner = c
	return nil
}

func (p *vampiric) OnDamageTaken(ev *combat.DamageEvent) error {
	if ev.Damage <= 0 {
		return nil
	}
	p.owner.Heal(float64(ev.Damage)*p.ratio, p.owner, combat.HealOptions{Origin: Vampiric})
	return nil
}

// thorns returns a share of each hit to the attacker as pure damage.
type thorns struct {
	owner *combat.Character
	ratio float64
}

func newThorns(d *resource.PassiveData) combat.PassiveHandler {
	return &thorns{ratio: param(d, "ratio", 0.2)}
}

func (p *thorns) ID() string { return Thorns }

func (p *thorns) Initialize(c *combat.Character) error {
	p.owner = c
	return nil
}

func (p *thorns) OnDamageTaken(ev *combat.DamageEvent) error {
	if ev.Source == nil || ev.Source == p.owner || ev.Damage <= 0 || ev.Options.Reflected {
		return nil
	}
	ev.Source.ApplyDamage(float64(ev.Damage)*p.ratio, combat.Pure, p.owner, combat.DamageOptions{
		Origin:      Thorns,
		Reflected:   true,
		Undodgeable: true,
	})
	return nil
}

// angryBull permanently gains armor every time its owner is hit.
type angryBull struct {
	owner *combat.Character
	step  float64
	cap   float64
	total float64
}

func newAngryBull(d *resource.PassiveData) combat.PassiveHandler {
	return &angryBull{step: param(d, "armorPerHit", 2), cap: param(d, "maxBonus", 50)}
}

func (p *angryBull) ID() string { return AngryBull }

func (p *angryBull) Initialize(c *combat.Character) error {
	p.owner = c
	return nil
}

func (p *angryBull) OnDamageTaken(ev *combat.DamageEvent) error {
	if p.total >= p.cap {
		return nil
	}
	step := min(p.step, p.cap-p.total)
	if err := p.owner.AdjustBase(stat.Armor, stat.OpAdd, step); err != nil {
		return err
	}
	p.total += step
	return p.owner.RecalculateStats()
}

// martyr strikes back at its killer on death.
type martyr struct {
	owner    *combat.Character
	damage   float64
	disposed bool
}

func newMartyr(d *resource.PassiveData) combat.PassiveHandler {
	return &martyr{damage: param(d, "damage", 150)}
}

func (p *martyr) ID() string { return Martyr }

func (p *martyr) Initialize(c *combat.Character) error {
	p.owner = c
	return nil
}

func (p *martyr) OnDeath(ev *combat.DeathEvent) error {
	if ev.Killer == nil || ev.Killer.IsDead() {
		return nil
	}
	ev.Killer.ApplyDamage(p.damage, combat.Magical, p.owner, combat.DamageOptions{Origin: Martyr, Reflected: true})
	return nil
}

func (p *martyr) Dispose() {
	p.disposed = true
	p.owner.Env().Logger.Debug("passive disposed", zap.String("passive", Martyr), zap.String("character", p.owner.ID()))
}

// berserker enrages at the start of its turn while below a health threshold.
type berserker struct {
	owner     *combat.Character
	threshold float64
	rage      *combat.Ability
	build     registry.EffectBuilder
}

func newBerserker(build registry.EffectBuilder) registry.PassiveConstructor {
	return func(d *resource.PassiveData) combat.PassiveHandler {
		return &berserker{
			threshold: param(d, "threshold", 0.5),
			rage:      &combat.Ability{ID: Berserker, Params: map[string]any{"rage": param(d, "rage", 0.25)}},
			build:     build,
		}
	}
}

func (p *berserker) ID() string { return Berserker }

func (p *berserker) Initialize(c *combat.Character) error {
	p.owner = c
	return nil
}

func (p *berserker) OnTurnStart(owner *combat.Character, turn int) error {
	if owner.MaxHP() == 0 || float64(owner.HP())/float64(owner.MaxHP()) >= p.threshold {
		return nil
	}
	return owner.AddBuff(p.build(p.rage))
}
