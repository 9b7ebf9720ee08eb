package battlelog

import (
	"sync"

	"github.com/kasuganosora/arena/game/combat"
	"go.uber.org/zap"
)

// Memory keeps journal entries in memory.
type Memory struct {
	mu      sync.Mutex
	entries []combat.JournalEntry
}

func (m *Memory) Record(e combat.JournalEntry) {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (m *Memory) Entries() []combat.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]combat.JournalEntry(nil), m.entries...)
}

// Kind returns the entries of one kind.
func (m *Memory) Kind(kind string) []combat.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []combat.JournalEntry
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Tee fans entries out to several journals. Nil journals are skipped.
type Tee []combat.Journal

func (t Tee) Record(e combat.JournalEntry) {
	for _, j := range t {
		if j != nil {
			j.Record(e)
		}
	}
}

// Logger writes entries to zap at debug level; warnings and hook errors
// go out at warn.
type Logger struct {
	L *zap.Logger
}

func (l Logger) Record(e combat.JournalEntry) {
	fields := []zap.Field{
		zap.Int("turn", e.Turn),
		zap.String("character", e.Character),
		zap.String("kind", e.Kind),
	}
	if len(e.Fields) > 0 {
		fields = append(fields, zap.Any("fields", e.Fields))
	}
	switch e.Kind {
	case combat.KindWarning, combat.KindHookError:
		l.L.Warn(e.Message, fields...)
	default:
		l.L.Debug(e.Message, fields...)
	}
}
