package combat

import (
	"github.com/kasuganosora/arena/game/stat"
)

// Ledger is the insertion-ordered set of active effects on one character.
// Ids are unique within a ledger: re-adding an id refreshes the entry.
type Ledger struct {
	entries []*Effect
}

// Add attaches e. If an entry with the same id exists its remaining
// duration is reset to e.Duration and the existing entry is returned with
// refreshed=true; e itself is discarded.
func (l *Ledger) Add(e *Effect) (entry *Effect, refreshed bool, err error) {
	if i := l.index(e.ID); i >= 0 {
		cur := l.entries[i]
		l.Refresh(cur, e.Duration)
		return cur, true, nil
	}
	if err := e.transition(evActivate); err != nil {
		return nil, false, err
	}
	e.remaining = e.Duration
	l.entries = append(l.entries, e)
	return e, false, nil
}

// Refresh resets the duration of an attached entry.
func (l *Ledger) Refresh(e *Effect, duration int) {
	e.Duration = duration
	e.remaining = duration
}

// Detach moves the entry to expiring and drops it from the ledger. The
// caller runs OnRemove and then Finish. The entry is dropped even when
// the lifecycle transition fails; err reports the illegal transition.
func (l *Ledger) Detach(id string) (e *Effect, ok bool, err error) {
	i := l.index(id)
	if i < 0 {
		return nil, false, nil
	}
	e = l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return e, true, e.transition(evExpire)
}

// Finish completes removal of a detached effect.
func Finish(e *Effect) error { return e.transition(evRemove) }

// decrement counts one turn off e and reports whether it is now expired.
// Permanent effects never expire.
func (l *Ledger) decrement(e *Effect) bool {
	if e.IsPermanent() {
		return false
	}
	e.remaining--
	return e.remaining <= 0
}

// Get returns the entry with id, or nil.
func (l *Ledger) Get(id string) *Effect {
	if i := l.index(id); i >= 0 {
		return l.entries[i]
	}
	return nil
}

// Holds reports whether e is still attached.
func (l *Ledger) Holds(e *Effect) bool {
	for _, x := range l.entries {
		if x == e {
			return true
		}
	}
	return false
}

// Len returns the number of active effects.
func (l *Ledger) Len() int { return len(l.entries) }

// All returns a snapshot in insertion order.
func (l *Ledger) All() []*Effect {
	out := make([]*Effect, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filter returns the entries matching debuff, in insertion order.
func (l *Ledger) Filter(debuff bool) []*Effect {
	var out []*Effect
	for _, e := range l.entries {
		if e.IsDebuff == debuff {
			out = append(out, e)
		}
	}
	return out
}

// Modifiers flattens the stat modifiers of every active effect.
func (l *Ledger) Modifiers() []stat.Modifier {
	var mods []stat.Modifier
	for _, e := range l.entries {
		mods = append(mods, e.Modifiers...)
	}
	return mods
}

// HasRestriction reports whether any active effect carries r.
func (l *Ledger) HasRestriction(r Restriction) bool {
	for _, e := range l.entries {
		if e.Restriction == r {
			return true
		}
	}
	return false
}

func (l *Ledger) index(id string) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
