package battle

import (
	"context"

	"github.com/kasuganosora/arena/game/combat"
)

// Greedy uses the first ready, affordable ability in the actor's list and
// aims it at the weakest valid target: the enemy (or ally, for support
// abilities) with the least HP. It passes when nothing is usable.
type Greedy struct{}

func (Greedy) Decide(_ context.Context, actor *combat.Character, allies, enemies []*combat.Character) (*combat.CastRequest, error) {
	for _, ab := range actor.Abilities().All() {
		if !ab.Ready() || ab.ManaCost > actor.Mana() {
			continue
		}
		targets := pickTargets(ab.Target, actor, allies, enemies)
		if targets == nil {
			continue
		}
		return &combat.CastRequest{AbilityID: ab.ID, Targets: targets}, nil
	}
	return nil, nil
}

// pickTargets resolves a target kind. It returns nil when no target is
// valid.
func pickTargets(kind combat.TargetKind, actor *combat.Character, allies, enemies []*combat.Character) []*combat.Character {
	switch kind {
	case combat.TargetSelf:
		return []*combat.Character{actor}
	case combat.TargetAlly:
		return weakest(actor, allies)
	case combat.TargetAllAllies:
		return targetable(actor, allies)
	case combat.TargetAllEnemies:
		return targetable(actor, enemies)
	default:
		return weakest(actor, enemies)
	}
}

func targetable(actor *combat.Character, cs []*combat.Character) []*combat.Character {
	var out []*combat.Character
	for _, c := range cs {
		if c.IsAlive() && c.IsTargetableBy(actor) {
			out = append(out, c)
		}
	}
	return out
}

func weakest(actor *combat.Character, cs []*combat.Character) []*combat.Character {
	var best *combat.Character
	for _, c := range targetable(actor, cs) {
		if best == nil || c.HP() < best.HP() {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return []*combat.Character{best}
}
