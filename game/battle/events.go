package battle

import "github.com/kasuganosora/arena/game/combat"

// Event is emitted by an Arena for rendering or network layers to consume.
type Event interface {
	EventType() string
}

// Snapshot is a copy of a character's visible state.
type Snapshot struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Team    string   `json:"team"`
	HP      int      `json:"hp"`
	MaxHP   int      `json:"max_hp"`
	Mana    float64  `json:"mana"`
	MaxMana float64  `json:"max_mana"`
	Shield  int      `json:"shield"`
	Dead    bool     `json:"dead"`
	Effects []string `json:"effects,omitempty"`
}

// SnapshotCharacter captures c.
func SnapshotCharacter(c *combat.Character) Snapshot {
	s := Snapshot{
		ID:      c.ID(),
		Name:    c.Name(),
		Team:    c.Team(),
		HP:      c.HP(),
		MaxHP:   c.MaxHP(),
		Mana:    c.Mana(),
		MaxMana: c.MaxMana(),
		Shield:  c.Shield(),
		Dead:    c.IsDead(),
	}
	for _, e := range c.Effects() {
		s.Effects = append(s.Effects, e.ID)
	}
	return s
}

func snapshotAll(cs []*combat.Character) []Snapshot {
	out := make([]Snapshot, len(cs))
	for i, c := range cs {
		out[i] = SnapshotCharacter(c)
	}
	return out
}

func ids(cs []*combat.Character) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID()
	}
	return out
}

// --- Concrete event types ---

type EventBattleStart struct {
	Characters []Snapshot `json:"characters"`
}

func (EventBattleStart) EventType() string { return "battle_start" }

type EventTurnStart struct {
	Turn  int      `json:"turn"`
	Order []string `json:"order"`
}

func (EventTurnStart) EventType() string { return "turn_start" }

// EventAction reports one actor's decision. Ability is empty when the
// actor passed.
type EventAction struct {
	Turn    int        `json:"turn"`
	Actor   string     `json:"actor"`
	Ability string     `json:"ability,omitempty"`
	Targets []string   `json:"targets,omitempty"`
	Error   string     `json:"error,omitempty"`
	After   []Snapshot `json:"after"`
}

func (EventAction) EventType() string { return "action" }

type EventTurnEnd struct {
	Turn       int        `json:"turn"`
	Characters []Snapshot `json:"characters"`
}

func (EventTurnEnd) EventType() string { return "turn_end" }

type EventBattleEnd struct {
	Result Result `json:"result"`
}

func (EventBattleEnd) EventType() string { return "battle_end" }
