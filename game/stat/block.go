// Package stat holds the base/derived stat model for one combatant.
package stat

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Well-known stat keys. Data files may declare others; any key present in
// the base map is a valid modifier target.
const (
	MaxHP          = "maxHp"
	MaxMana        = "maxMana"
	PhysicalDamage = "physicalDamage"
	MagicalDamage  = "magicalDamage"
	Armor          = "armor"
	MagicalShield  = "magicalShield"
	Speed          = "speed"
	CritChance     = "critChance"
	CritDamage     = "critDamage"
	DodgeChance    = "dodgeChance"
	HealingPower   = "healingPower"
	Lifesteal      = "lifesteal"
)

var (
	ErrNoBase      = errors.New("stat: base stats not initialised")
	ErrUnknownStat = errors.New("stat: unknown stat")
	ErrBadOp       = errors.New("stat: unknown operation")
)

// Kind selects how a modifier combines with the base value.
type Kind int

const (
	Additive Kind = iota
	Percentage
)

func (k Kind) String() string {
	switch k {
	case Additive:
		return "additive"
	case Percentage:
		return "percentage"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps the data-file spelling to a Kind. Empty defaults to additive.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "", "additive", "flat":
		return Additive, true
	case "percentage", "percent":
		return Percentage, true
	}
	return Additive, false
}

// Modifier is a single stat delta. Percentage values are fractions:
// -0.15 is a 15% reduction.
type Modifier struct {
	Stat  string
	Value float64
	Kind  Kind
}

// Op is a base-stat patch operation.
type Op string

const (
	OpSet      Op = "set"
	OpAdd      Op = "add"
	OpMultiply Op = "multiply"
)

// Apply returns cur patched by op. Empty op means set.
func (op Op) Apply(cur, v float64) (float64, error) {
	switch op {
	case OpSet, "":
		return v, nil
	case OpAdd:
		return cur + v, nil
	case OpMultiply:
		return cur * v, nil
	}
	return cur, fmt.Errorf("%w %q", ErrBadOp, string(op))
}

// ClampRule bounds a derived stat. Clamping only happens for stats that
// have an explicit rule.
type ClampRule struct {
	Min, Max float64
}

// Recalculate derives current stats from base and the active modifiers:
// (base + Σadditive) * (1 + Σpercentage). Modifiers naming a stat absent
// from base are ignored. Sums are taken in sorted order so the result does
// not depend on modifier order.
func Recalculate(base map[string]float64, mods []Modifier) map[string]float64 {
	adds := make(map[string][]float64)
	pcts := make(map[string][]float64)
	for _, m := range mods {
		if _, ok := base[m.Stat]; !ok {
			continue
		}
		if m.Kind == Percentage {
			pcts[m.Stat] = append(pcts[m.Stat], m.Value)
		} else {
			adds[m.Stat] = append(adds[m.Stat], m.Value)
		}
	}

	out := make(map[string]float64, len(base))
	for name, v := range base {
		v += sortedSum(adds[name])
		if p := pcts[name]; len(p) > 0 {
			v *= 1 + sortedSum(p)
		}
		out[name] = v
	}
	return out
}

func sortedSum(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sort.Float64s(vs)
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum
}

// Block holds base and current stats for one character.
type Block struct {
	base    map[string]float64
	current map[string]float64
	clamps  map[string]ClampRule
}

// NewBlock creates an empty block; call SetBase before Recalculate.
func NewBlock(clamps map[string]ClampRule) *Block {
	b := &Block{clamps: make(map[string]ClampRule, len(clamps))}
	for k, v := range clamps {
		b.clamps[k] = v
	}
	return b
}

// SetBase snapshots src as the base map. The map is copied.
func (b *Block) SetBase(src map[string]float64) {
	b.base = make(map[string]float64, len(src))
	for k, v := range src {
		b.base[k] = v
	}
	b.current = nil
}

// HasBase reports whether a base snapshot exists.
func (b *Block) HasBase() bool { return b.base != nil }

// Has reports whether name is a known stat.
func (b *Block) Has(name string) bool {
	_, ok := b.base[name]
	return ok
}

// Base returns the base value of name (0 when unknown).
func (b *Block) Base(name string) float64 { return b.base[name] }

// Get returns the current value of name. Before the first Recalculate the
// base value is returned.
func (b *Block) Get(name string) float64 {
	if b.current == nil {
		return b.base[name]
	}
	return b.current[name]
}

// AdjustBase permanently patches a base stat.
func (b *Block) AdjustBase(name string, op Op, v float64) error {
	if b.base == nil {
		return ErrNoBase
	}
	cur, ok := b.base[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownStat, name)
	}
	nv, err := op.Apply(cur, v)
	if err != nil {
		return err
	}
	if math.IsNaN(nv) || math.IsInf(nv, 0) {
		return fmt.Errorf("stat: %s %s %v yields %v", name, op, v, nv)
	}
	b.base[name] = nv
	return nil
}

// Recalculate rebuilds current from base and mods, then applies the
// configured clamp rules.
func (b *Block) Recalculate(mods []Modifier) error {
	if b.base == nil {
		return ErrNoBase
	}
	cur := Recalculate(b.base, mods)
	for name, r := range b.clamps {
		v, ok := cur[name]
		if !ok {
			continue
		}
		cur[name] = math.Max(r.Min, math.Min(r.Max, v))
	}
	b.current = cur
	return nil
}

// BaseSnapshot returns a copy of the base map.
func (b *Block) BaseSnapshot() map[string]float64 { return copyMap(b.base) }

// Snapshot returns a copy of the current map.
func (b *Block) Snapshot() map[string]float64 {
	if b.current == nil {
		return copyMap(b.base)
	}
	return copyMap(b.current)
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
