package combat

import (
	"context"
	"fmt"
	"time"

	"github.com/kasuganosora/arena/game/stat"
)

// DamageType selects which defensive stat mitigates a hit.
type DamageType string

const (
	Physical DamageType = "physical"
	Magical  DamageType = "magical"
	Pure     DamageType = "pure"
)

// TargetKind describes who an ability may be aimed at.
type TargetKind string

const (
	TargetEnemy      TargetKind = "enemy"
	TargetAlly       TargetKind = "ally"
	TargetSelf       TargetKind = "self"
	TargetAllEnemies TargetKind = "all_enemies"
	TargetAllAllies  TargetKind = "all_allies"
)

// Behavior executes an ability. It runs to completion once started.
type Behavior func(ctx context.Context, cast *Cast) error

// Ability is a per-character ability instance. Talents patch it in place,
// so instances are never shared between characters.
type Ability struct {
	ID          string
	Name        string
	Description string
	Type        DamageType
	Target      TargetKind
	Formula     string
	Power       float64
	Cooldown    int
	ManaCost    float64
	Hits        int
	HitDelay    time.Duration
	Duration    int
	Params      map[string]any

	Behavior Behavior

	cooldownLeft int
}

// Ready reports whether the ability is off cooldown.
func (a *Ability) Ready() bool { return a.cooldownLeft <= 0 }

// CooldownLeft returns the remaining cooldown in owner turns.
func (a *Ability) CooldownLeft() int { return a.cooldownLeft }

// ResetCooldown makes the ability usable immediately.
func (a *Ability) ResetCooldown() { a.cooldownLeft = 0 }

// Float returns a numeric parameter or def.
func (a *Ability) Float(name string, def float64) float64 {
	if v, ok := stat.Number(a.Params[name]); ok {
		return v
	}
	return def
}

// Bool returns a boolean parameter (false when absent).
func (a *Ability) Bool(name string) bool {
	b, _ := a.Params[name].(bool)
	return b
}

// String returns a string parameter or "".
func (a *Ability) String(name string) string {
	s, _ := a.Params[name].(string)
	return s
}

// Patch applies a talent operation to a named property. Typed fields are
// patched directly; anything else lives in Params. set may introduce a new
// parameter, add and multiply require an existing numeric one.
func (a *Ability) Patch(property string, op stat.Op, value any) error {
	if isNumericField(property) {
		v, ok := stat.Number(value)
		if !ok {
			return fmt.Errorf("%w: %s=%v", ErrNotNumeric, property, value)
		}
		return a.patchNumber(property, op, v)
	}

	switch property {
	case "name", "description", "formula", "type", "target":
		s, ok := value.(string)
		if !ok || (op != stat.OpSet && op != "") {
			return fmt.Errorf("%w: %s only supports set with a string", ErrUnknownProperty, property)
		}
		a.setString(property, s)
		return nil
	}

	if a.Params == nil {
		a.Params = make(map[string]any)
	}
	if op == stat.OpSet || op == "" {
		a.Params[property] = value
		return nil
	}
	cur, exists := a.Params[property]
	if !exists {
		return fmt.Errorf("%w %q on %s", ErrUnknownProperty, property, a.ID)
	}
	cv, ok1 := stat.Number(cur)
	v, ok2 := stat.Number(value)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: %s", ErrNotNumeric, property)
	}
	nv, err := op.Apply(cv, v)
	if err != nil {
		return err
	}
	a.Params[property] = nv
	return nil
}

func isNumericField(property string) bool {
	switch property {
	case "power", "manaCost", "cooldown", "hits", "duration", "hitDelayMs":
		return true
	}
	return false
}

func (a *Ability) patchNumber(property string, op stat.Op, v float64) error {
	var cur float64
	switch property {
	case "power":
		cur = a.Power
	case "manaCost":
		cur = a.ManaCost
	case "cooldown":
		cur = float64(a.Cooldown)
	case "hits":
		cur = float64(a.Hits)
	case "duration":
		cur = float64(a.Duration)
	case "hitDelayMs":
		cur = float64(a.HitDelay.Milliseconds())
	}
	nv, err := op.Apply(cur, v)
	if err != nil {
		return err
	}
	switch property {
	case "power":
		a.Power = nv
	case "manaCost":
		a.ManaCost = nv
	case "cooldown":
		a.Cooldown = int(nv)
	case "hits":
		a.Hits = int(nv)
	case "duration":
		a.Duration = int(nv)
	case "hitDelayMs":
		a.HitDelay = time.Duration(nv) * time.Millisecond
	}
	return nil
}

func (a *Ability) setString(property, s string) {
	switch property {
	case "name":
		a.Name = s
	case "description":
		a.Description = s
	case "formula":
		a.Formula = s
	case "type":
		a.Type = DamageType(s)
	case "target":
		a.Target = TargetKind(s)
	}
}

// Clone returns an independent copy with cooldown state reset.
func (a *Ability) Clone() *Ability {
	cp := *a
	cp.Params = make(map[string]any, len(a.Params))
	for k, v := range a.Params {
		cp.Params[k] = v
	}
	cp.cooldownLeft = 0
	return &cp
}

// AbilitySet is a character's ordered ability collection.
type AbilitySet struct {
	list []*Ability
}

// Add appends a; a later ability with the same id replaces the earlier one.
func (s *AbilitySet) Add(a *Ability) {
	for i, x := range s.list {
		if x.ID == a.ID {
			s.list[i] = a
			return
		}
	}
	s.list = append(s.list, a)
}

// Get returns the ability with id, or nil.
func (s *AbilitySet) Get(id string) *Ability {
	for _, a := range s.list {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// All returns the abilities in declaration order.
func (s *AbilitySet) All() []*Ability {
	out := make([]*Ability, len(s.list))
	copy(out, s.list)
	return out
}

// Len returns the number of abilities.
func (s *AbilitySet) Len() int { return len(s.list) }

func (s *AbilitySet) tickCooldowns() {
	for _, a := range s.list {
		if a.cooldownLeft > 0 {
			a.cooldownLeft--
		}
	}
}

// Cast is the execution context handed to a Behavior.
type Cast struct {
	Ability *Ability
	Caster  *Character
	Targets []*Character
	// Allies and Enemies are filled by the battle loop; nil outside one.
	Allies  []*Character
	Enemies []*Character
}

// Amount evaluates the ability formula against target and scales it by
// Power (1 when unset). An empty formula yields Power.
func (c *Cast) Amount(ctx context.Context, target *Character) (float64, error) {
	power := c.Ability.Power
	if power == 0 {
		power = 1
	}
	if c.Ability.Formula == "" {
		return power, nil
	}
	env := c.Caster.env
	if env.Formula == nil {
		return 0, ErrNoFormulaBackend
	}
	var b map[string]float64
	if target != nil {
		b = target.Stats()
	}
	v, err := env.Formula.Eval(ctx, c.Ability.Formula, c.Caster.Stats(), b)
	if err != nil {
		return 0, fmt.Errorf("ability %s: %w", c.Ability.ID, err)
	}
	return v * power, nil
}

// Pause waits through the battle's Pacer.
func (c *Cast) Pause(ctx context.Context, d time.Duration) error {
	return c.Caster.env.pause(ctx, d)
}

// Options returns damage options tagged with this cast's ability.
func (c *Cast) Options() DamageOptions {
	return DamageOptions{AbilityID: c.Ability.ID, CanCrit: true}
}
