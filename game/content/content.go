// Package content holds the built-in abilities, effects, passives and
// talent extensions, and registers them with the factories at startup.
package content

import (
	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/registry"
	"github.com/kasuganosora/arena/game/stat"
	"github.com/kasuganosora/arena/game/talent"
)

// Talent ids consumed by extensions.
const (
	FlurryMastery = "flurry_mastery"
	Duelist       = "duelist"
)

// Register installs every built-in behaviour. app may be nil when no
// talents are used.
func Register(reg *registry.Registry, app *talent.Applicator) {
	registerEffects(reg.Abilities)
	registerBehaviors(reg.Abilities)

	reg.Passives.Register(Vampiric, newVampiric)
	reg.Passives.Register(Thorns, newThorns)
	reg.Passives.Register(AngryBull, newAngryBull)
	reg.Passives.Register(Martyr, newMartyr)
	reg.Passives.Register(Berserker, newBerserker(rageEffect))

	if app != nil {
		app.RegisterExtension(Duelist, duelistTalents)
	}
}

// duelistTalents turns on repeat-on-crit for every multi-hit ability once
// Flurry Mastery is unlocked.
func duelistTalents(c *combat.Character, unlocked []string, abilities *combat.AbilitySet) error {
	for _, id := range unlocked {
		if id != FlurryMastery {
			continue
		}
		for _, ab := range abilities.All() {
			if ab.Hits > 1 {
				if err := ab.Patch("repeatOnCrit", stat.OpSet, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
