package content

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/registry"
	"github.com/kasuganosora/arena/game/stat"
	"github.com/kasuganosora/arena/game/talent"
	"github.com/kasuganosora/arena/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPacer struct{ pauses []time.Duration }

func (p *countingPacer) Pause(ctx context.Context, d time.Duration) error {
	p.pauses = append(p.pauses, d)
	return ctx.Err()
}

type fixture struct {
	reg   *registry.Registry
	app   *talent.Applicator
	env   *combat.Env
	pacer *countingPacer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: registry.New(nil), app: talent.NewApplicator(nil), pacer: &countingPacer{}}
	f.env = combat.NewEnv(combat.Env{RNG: rand.New(rand.NewSource(7)), Pacer: f.pacer})
	Register(f.reg, f.app)
	f.reg.Abilities.Define(
		&resource.AbilityData{ID: "flurry", Behavior: MultiStrike, Type: "pure", Power: 30, Hits: 3, HitDelayMs: 100},
		&resource.AbilityData{ID: "sunder", Behavior: ArmorBreak, Type: "pure", Power: 10, Duration: 2},
		&resource.AbilityData{ID: "sting", Behavior: Venom, Type: "pure", Power: 1, Params: map[string]any{"tickDamage": 15.0}},
		&resource.AbilityData{ID: "bulwark", Behavior: ShieldWall, Target: "self", Params: map[string]any{"shield": 80.0}},
		&resource.AbilityData{ID: "fade", Behavior: Vanish, Target: "self"},
		&resource.AbilityData{ID: "purify", Behavior: Cleanse, Target: "ally", Params: map[string]any{"count": 2.0}},
	)
	return f
}

func (f *fixture) character(t *testing.T, id, team string, passive string, abilities ...string) *combat.Character {
	t.Helper()
	data := &resource.CharacterData{
		ID: id, Name: id,
		Stats: map[string]float64{
			stat.MaxHP: 1000, stat.MaxMana: 100, stat.Armor: 100,
			stat.PhysicalDamage: 50, stat.DodgeChance: 0, stat.CritChance: 0,
		},
		Abilities: abilities,
	}
	if passive != "" {
		data.Passive = &resource.PassiveData{ID: passive}
	}
	c, err := f.reg.Characters.Create(data, team, f.env)
	require.NoError(t, err)
	require.NoError(t, c.StartBattle())
	return c
}

func cast(t *testing.T, c *combat.Character, ability string, targets ...*combat.Character) {
	t.Helper()
	require.NoError(t, c.UseAbility(context.Background(), combat.CastRequest{AbilityID: ability, Targets: targets}))
}

// ---- passives ----

func TestVampiric_HealsHalfOfDamageTaken(t *testing.T) {
	f := newFixture(t)
	c := f.character(t, "v", "red", Vampiric)
	c.SetHP(1000)
	require.NoError(t, c.AdjustBase(stat.MaxHP, stat.OpSet, 2000))
	require.NoError(t, c.RecalculateStats())

	c.ApplyDamage(400, combat.Pure, nil, combat.DamageOptions{})
	assert.Equal(t, 800, c.HP())
}

func TestThorns_ReflectsOnce(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", Thorns)
	b := f.character(t, "b", "blue", Thorns)

	b.ApplyDamage(100, combat.Pure, a, combat.DamageOptions{})
	assert.Equal(t, 900, b.HP())
	assert.Equal(t, 980, a.HP())
}

func TestAngryBull_GainsArmorPerHit(t *testing.T) {
	f := newFixture(t)
	c := f.character(t, "bull", "red", AngryBull)
	for i := 0; i < 3; i++ {
		c.ApplyDamage(10, combat.Pure, nil, combat.DamageOptions{})
	}
	assert.Equal(t, 106.0, c.BaseStat(stat.Armor))
	assert.Equal(t, 106.0, c.Stat(stat.Armor))
}

func TestAngryBull_BonusIsCapped(t *testing.T) {
	f := newFixture(t)
	data := &resource.CharacterData{
		ID: "bull", Stats: map[string]float64{stat.MaxHP: 1000, stat.Armor: 0},
		Passive: &resource.PassiveData{ID: AngryBull, Params: map[string]any{"armorPerHit": 4.0, "maxBonus": 10.0}},
	}
	c, err := f.reg.Characters.Create(data, "red", f.env)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		c.ApplyDamage(1, combat.Pure, nil, combat.DamageOptions{})
	}
	assert.Equal(t, 10.0, c.BaseStat(stat.Armor))
}

func TestMartyr_HitsKillerOnceAndDisposes(t *testing.T) {
	f := newFixture(t)
	killer := f.character(t, "k", "red", "")
	victim := f.character(t, "m", "blue", Martyr)

	victim.ApplyDamage(5000, combat.Pure, killer, combat.DamageOptions{})
	victim.Kill(killer)

	assert.True(t, victim.IsDead())
	assert.Equal(t, 850, killer.HP())
	assert.True(t, victim.Passive().(*martyr).disposed)
}

func TestBerserker_EnragesBelowThreshold(t *testing.T) {
	f := newFixture(t)
	c := f.character(t, "b", "red", Berserker)

	c.BeginTurn(1)
	assert.Nil(t, c.Effect(EffectRage))

	c.SetHP(400)
	c.BeginTurn(2)
	require.NotNil(t, c.Effect(EffectRage))
	assert.InDelta(t, 62.5, c.Stat(stat.PhysicalDamage), 1e-9)

	c.BeginTurn(3)
	assert.Len(t, c.Buffs(), 1, "rage refreshes instead of stacking")
}

// ---- abilities ----

func TestMultiStrike_HitsWithPauses(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "flurry")
	b := f.character(t, "b", "blue", "")

	cast(t, a, "flurry", b)
	assert.Equal(t, 910, b.HP())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, f.pacer.pauses)
}

func TestMultiStrike_RunsToCompletionWhenCancelled(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "flurry")
	b := f.character(t, "b", "blue", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.UseAbility(ctx, combat.CastRequest{AbilityID: "flurry", Targets: []*combat.Character{b}})
	require.NoError(t, err)
	assert.Equal(t, 910, b.HP())
	assert.Len(t, f.pacer.pauses, 2)
}

func TestMultiStrike_StopsOnDeadTargetOnly(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "flurry")
	weak := f.character(t, "weak", "blue", "")
	strong := f.character(t, "strong", "blue", "")
	weak.SetHP(40)

	cast(t, a, "flurry", weak, strong)
	assert.True(t, weak.IsDead())
	assert.Equal(t, 910, strong.HP())
	// one pause before weak's fatal second hit, two for strong
	assert.Len(t, f.pacer.pauses, 3)
}

func TestMultiStrike_RepeatOnCritFromTalent(t *testing.T) {
	f := newFixture(t)
	data := &resource.CharacterData{
		ID: Duelist, Stats: map[string]float64{stat.MaxHP: 1000, stat.CritChance: 1},
		Abilities: []string{"flurry"},
	}
	duelist, err := f.reg.Characters.Create(data, "red", f.env)
	require.NoError(t, err)
	_, err = f.app.Apply(duelist, []string{FlurryMastery}, talent.Tree{FlurryMastery: {Name: "Flurry Mastery"}})
	require.NoError(t, err)
	require.True(t, duelist.Abilities().Get("flurry").Bool("repeatOnCrit"))

	target := f.character(t, "t", "blue", "")
	cast(t, duelist, "flurry", target)
	// 4 crits of 30 * 1.5
	assert.Equal(t, 1000-4*45, target.HP())
}

func TestArmorBreak_RefreshesSingleDebuff(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "sunder")
	b := f.character(t, "b", "blue", "")

	cast(t, a, "sunder", b)
	assert.InDelta(t, 85, b.Stat(stat.Armor), 1e-9)
	b.EndTurn(1)
	a.Abilities().Get("sunder").ResetCooldown()
	cast(t, a, "sunder", b)

	require.Len(t, b.Debuffs(), 1)
	assert.Equal(t, 2, b.Effect(EffectArmorBreak).Remaining())
	assert.Equal(t, "a", b.Effect(EffectArmorBreak).SourceID)
}

func TestVenom_StacksAndTicks(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "sting")
	b := f.character(t, "b", "blue", "")

	cast(t, a, "sting", b)
	cast(t, a, "sting", b)
	require.Len(t, b.Debuffs(), 2)
	assert.Equal(t, 998, b.HP())

	b.EndTurn(1)
	assert.Equal(t, 968, b.HP())
	b.EndTurn(2)
	b.EndTurn(3)
	assert.Equal(t, 908, b.HP())
	assert.Empty(t, b.Debuffs())
}

func TestShieldWall_DefaultsToCaster(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "bulwark")
	cast(t, a, "bulwark")
	assert.Equal(t, 80, a.Shield())
	assert.Equal(t, 130.0, a.Stat(stat.Armor))
}

func TestVanish_BlocksEnemyTargeting(t *testing.T) {
	f := newFixture(t)
	a := f.character(t, "a", "red", "", "fade")
	enemy := f.character(t, "e", "blue", "", "flurry")

	cast(t, a, "fade")
	err := enemy.UseAbility(context.Background(), combat.CastRequest{AbilityID: "flurry", Targets: []*combat.Character{a}})
	assert.ErrorIs(t, err, combat.ErrNoTargets)
	assert.InDelta(t, 0.2, a.Stat(stat.DodgeChance), 1e-9)
}

func TestCleanse_RemovesDebuffs(t *testing.T) {
	f := newFixture(t)
	healer := f.character(t, "h", "red", "", "purify")
	ally := f.character(t, "ally", "red", "")
	for i := 0; i < 3; i++ {
		require.NoError(t, ally.AddDebuff(&combat.Effect{ID: combat.StackID("curse"), Duration: 3}))
	}
	cast(t, healer, "purify", ally)
	assert.Len(t, ally.Debuffs(), 1)
}
