package combat

import "errors"

var (
	ErrDead             = errors.New("combat: character is dead")
	ErrNilEffect        = errors.New("combat: nil effect")
	ErrEffectID         = errors.New("combat: effect has no id")
	ErrEffectNotFound   = errors.New("combat: effect not found")
	ErrEffectKind       = errors.New("combat: effect already attached as the other kind")
	ErrUnknownAbility   = errors.New("combat: unknown ability")
	ErrOnCooldown       = errors.New("combat: ability on cooldown")
	ErrNotEnoughMana    = errors.New("combat: not enough mana")
	ErrNoTargets        = errors.New("combat: no valid targets")
	ErrUnknownProperty  = errors.New("combat: unknown ability property")
	ErrNotNumeric       = errors.New("combat: property is not numeric")
	ErrPassiveAttached  = errors.New("combat: passive already attached")
	ErrNoFormulaBackend = errors.New("combat: no formula evaluator configured")
)
