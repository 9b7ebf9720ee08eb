package combat

import (
	"context"

	"github.com/google/uuid"
	"github.com/kasuganosora/arena/game/stat"
	"github.com/looplab/fsm"
)

// Permanent marks an effect that never ticks down.
const Permanent = -1

// Effect lifecycle states.
const (
	StatePending  = "pending"
	StateActive   = "active"
	StateExpiring = "expiring"
	StateRemoved  = "removed"
)

const (
	evActivate = "activate"
	evExpire   = "expire"
	evRemove   = "remove"
)

// Restriction limits who may target the owner while the effect is active.
type Restriction string

const (
	RestrictNone          Restriction = ""
	UntargetableByEnemies Restriction = "untargetable-by-enemies"
	UntargetableByAllies  Restriction = "untargetable-by-allies"
)

// EffectFunc is a lifecycle callback. owner is the character the effect
// is attached to.
type EffectFunc func(owner *Character, e *Effect)

// Effect is a timed buff or debuff. Effects sharing an ID refresh each
// other; use StackID for independent stacks.
type Effect struct {
	ID          string
	Name        string
	Icon        string
	Duration    int // turns, or Permanent
	IsDebuff    bool
	Modifiers   []stat.Modifier
	Restriction Restriction
	SourceID    string

	OnApply    EffectFunc
	OnRemove   EffectFunc
	OnTurnTick EffectFunc

	remaining int
	machine   *fsm.FSM
}

// StackID returns prefix plus a random suffix, giving each cast its own
// ledger entry.
func StackID(prefix string) string {
	return prefix + "#" + uuid.NewString()
}

// Remaining returns the turns left before expiry (Permanent for permanent
// effects).
func (e *Effect) Remaining() int { return e.remaining }

// IsPermanent reports whether the effect never expires on its own.
func (e *Effect) IsPermanent() bool { return e.Duration == Permanent }

// State returns the lifecycle state.
func (e *Effect) State() string {
	if e.machine == nil {
		return StatePending
	}
	return e.machine.Current()
}

func newEffectMachine() *fsm.FSM {
	return fsm.NewFSM(
		StatePending,
		fsm.Events{
			{Name: evActivate, Src: []string{StatePending}, Dst: StateActive},
			{Name: evExpire, Src: []string{StateActive}, Dst: StateExpiring},
			{Name: evRemove, Src: []string{StateExpiring}, Dst: StateRemoved},
		},
		fsm.Callbacks{},
	)
}

func (e *Effect) transition(event string) error {
	if e.machine == nil {
		e.machine = newEffectMachine()
	}
	return e.machine.Event(context.Background(), event)
}

// Clone returns a detached copy with fresh lifecycle state, suitable for
// applying the same template to another character.
func (e *Effect) Clone() *Effect {
	cp := *e
	cp.Modifiers = append([]stat.Modifier(nil), e.Modifiers...)
	cp.remaining = 0
	cp.machine = nil
	return &cp
}
