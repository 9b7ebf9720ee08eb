package combat

import (
	"context"
	"math/rand"
	"time"

	"github.com/kasuganosora/arena/game/stat"
	"go.uber.org/zap"
)

// StateObserver is notified after every observable change to a
// character's stats, resources or ledger. Rendering layers implement it.
type StateObserver interface {
	OnStateChanged(c *Character)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(c *Character)

func (f StateObserverFunc) OnStateChanged(c *Character) { f(c) }

// Journal entry kinds.
const (
	KindDamage        = "damage"
	KindHeal          = "heal"
	KindDodge         = "dodge"
	KindEffectAdded   = "effect_added"
	KindEffectRemoved = "effect_removed"
	KindDeath         = "death"
	KindCast          = "cast"
	KindWarning       = "warning"
	KindHookError     = "hook_error"
)

// JournalEntry is one line of the battle log.
type JournalEntry struct {
	Turn      int
	Character string
	Kind      string
	Message   string
	Fields    map[string]any
}

// Journal receives battle log entries. Implementations must not block.
type Journal interface {
	Record(e JournalEntry)
}

// Pacer inserts scripted pauses inside an ability, e.g. between hits.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// FormulaEvaluator evaluates a damage formula with attacker stats bound to
// "a" and defender stats bound to "b".
type FormulaEvaluator interface {
	Eval(ctx context.Context, formula string, a, b map[string]float64) (float64, error)
}

// Rules are the numeric policies shared by every character in a battle.
type Rules struct {
	// MitigationCap bounds armor / magical shield reduction (0..1).
	MitigationCap float64
	// CritMultiplier is used when the attacker has no critDamage stat.
	CritMultiplier float64
	// MaxHookDepth bounds nested passive dispatch.
	MaxHookDepth int
	Clamps       map[string]stat.ClampRule
}

// DefaultRules returns the standard battle policies.
func DefaultRules() Rules {
	return Rules{
		MitigationCap:  0.8,
		CritMultiplier: 1.5,
		MaxHookDepth:   8,
		Clamps: map[string]stat.ClampRule{
			stat.DodgeChance: {Min: 0, Max: 1},
			stat.CritChance:  {Min: 0, Max: 1},
		},
	}
}

// Env carries the collaborators shared by the characters of one battle.
type Env struct {
	Logger   *zap.Logger
	Journal  Journal
	Observer StateObserver
	RNG      *rand.Rand
	Formula  FormulaEvaluator
	Pacer    Pacer
	Rules    Rules

	turn  int
	depth int
}

// NewEnv fills unset collaborators with defaults.
func NewEnv(e Env) *Env {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	if e.RNG == nil {
		e.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d := DefaultRules()
	if e.Rules.Clamps == nil {
		e.Rules.Clamps = d.Clamps
	}
	if e.Rules.MitigationCap <= 0 {
		e.Rules.MitigationCap = d.MitigationCap
	}
	if e.Rules.CritMultiplier <= 0 {
		e.Rules.CritMultiplier = d.CritMultiplier
	}
	if e.Rules.MaxHookDepth <= 0 {
		e.Rules.MaxHookDepth = d.MaxHookDepth
	}
	return &e
}

// SetTurn records the current battle turn for journal entries.
func (e *Env) SetTurn(turn int) { e.turn = turn }

// Turn returns the current battle turn.
func (e *Env) Turn() int { return e.turn }

func (e *Env) record(c *Character, kind, msg string, fields map[string]any) {
	if e.Journal == nil {
		return
	}
	id := ""
	if c != nil {
		id = c.id
	}
	e.Journal.Record(JournalEntry{Turn: e.turn, Character: id, Kind: kind, Message: msg, Fields: fields})
}

// warn logs a soft error and mirrors it into the journal.
func (e *Env) warn(c *Character, msg string, fields ...zap.Field) {
	id := ""
	if c != nil {
		id = c.id
	}
	e.Logger.Warn(msg, append(fields, zap.String("character", id))...)
	e.record(c, KindWarning, msg, nil)
}

func (e *Env) notify(c *Character) {
	if e.Observer != nil {
		e.Observer.OnStateChanged(c)
	}
}

func (e *Env) pause(ctx context.Context, d time.Duration) error {
	if e.Pacer == nil || d <= 0 {
		return ctx.Err()
	}
	return e.Pacer.Pause(ctx, d)
}
