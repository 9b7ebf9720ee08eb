package combat

// PassiveHandler is the behaviour bound to a character's passive id.
// Initialize runs once when the handler is attached; other characters may
// not exist yet. Handlers opt into events by implementing the hook
// interfaces below.
type PassiveHandler interface {
	ID() string
	Initialize(owner *Character) error
}

type DamageTakenHook interface {
	OnDamageTaken(ev *DamageEvent) error
}

type DamageDealtHook interface {
	OnDamageDealt(ev *DamageEvent) error
}

type TurnStartHook interface {
	OnTurnStart(owner *Character, turn int) error
}

type TurnEndHook interface {
	OnTurnEnd(owner *Character, turn int) error
}

type AbilityCastHook interface {
	OnAbilityCast(ev *CastEvent) error
}

type BuffAddedHook interface {
	OnBuffAdded(ev *EffectEvent) error
}

type BuffRemovedHook interface {
	OnBuffRemoved(ev *EffectEvent) error
}

type DodgeHook interface {
	OnDodge(ev *DamageEvent) error
}

// DeathHook runs after the owner is marked dead, once per death.
type DeathHook interface {
	OnDeath(ev *DeathEvent) error
}

// Disposer releases handler resources at death or battle teardown.
type Disposer interface {
	Dispose()
}

// DamageEvent describes one resolved damage application.
type DamageEvent struct {
	Target     *Character
	Source     *Character
	Raw        float64
	Damage     int
	Absorbed   int
	Type       DamageType
	IsCritical bool
	IsDodged   bool
	Options    DamageOptions
}

// CastEvent is emitted when a character starts executing an ability.
type CastEvent struct {
	Caster  *Character
	Ability *Ability
	Targets []*Character
}

// EffectEvent is emitted when an effect is added, refreshed or removed.
type EffectEvent struct {
	Owner     *Character
	Effect    *Effect
	Refreshed bool
	Expired   bool
}

// DeathEvent is emitted once when a character dies.
type DeathEvent struct {
	Victim *Character
	Killer *Character
}
