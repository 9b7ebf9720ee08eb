package battle

import (
	"math/rand"
	"sort"

	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/game/stat"
)

// TurnManager determines the action order for a battle turn.
type TurnManager interface {
	// MakeActionOrder returns the living characters in acting order. The
	// input slice is not modified.
	MakeActionOrder(all []*combat.Character, rng *rand.Rand) []*combat.Character
}

// SpeedOrder sorts by the speed stat, fastest first. Equal speeds are
// ordered by a random roll drawn once per character per turn.
type SpeedOrder struct{}

func (SpeedOrder) MakeActionOrder(all []*combat.Character, rng *rand.Rand) []*combat.Character {
	type entry struct {
		c     *combat.Character
		speed float64
		roll  float64
	}
	entries := make([]entry, 0, len(all))
	for _, c := range all {
		if c.IsAlive() {
			entries = append(entries, entry{c: c, speed: c.Stat(stat.Speed), roll: rng.Float64()})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].speed != entries[j].speed {
			return entries[i].speed > entries[j].speed
		}
		return entries[i].roll > entries[j].roll
	})

	result := make([]*combat.Character, len(entries))
	for i, e := range entries {
		result[i] = e.c
	}
	return result
}
