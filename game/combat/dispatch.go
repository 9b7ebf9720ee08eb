package combat

import (
	"fmt"

	"go.uber.org/zap"
)

// dispatch invokes call on c's passive handler. Handlers whose id equals
// origin are skipped so a passive never reacts to damage it caused itself.
// Errors and panics stop at this boundary: they are logged and the event
// counts as handled.
func (c *Character) dispatch(hook, origin string, call func(h PassiveHandler) error) {
	h := c.passive
	if h == nil || c.disposed {
		return
	}
	if origin != "" && origin == h.ID() {
		return
	}
	env := c.env
	if env.depth >= env.Rules.MaxHookDepth {
		env.warn(c, "passive hook depth exceeded",
			zap.String("hook", hook), zap.String("passive", h.ID()), zap.Int("depth", env.depth))
		return
	}
	env.depth++
	defer func() { env.depth-- }()

	guard(env, c, hook, h.ID(), func() error { return call(h) })
}

// runEffect invokes an effect callback with the same isolation as passive
// hooks.
func (c *Character) runEffect(stage string, fn EffectFunc, e *Effect) {
	if fn == nil {
		return
	}
	guard(c.env, c, stage, e.ID, func() error {
		fn(c, e)
		return nil
	})
}

func guard(env *Env, c *Character, hook, owner string, call func() error) {
	defer func() {
		if r := recover(); r != nil {
			env.Logger.Error("hook panicked",
				zap.String("hook", hook), zap.String("handler", owner),
				zap.String("character", c.id), zap.Any("panic", r))
			env.record(c, KindHookError, fmt.Sprintf("%s/%s panicked: %v", owner, hook, r), nil)
		}
	}()
	if err := call(); err != nil {
		env.Logger.Warn("hook failed",
			zap.String("hook", hook), zap.String("handler", owner),
			zap.String("character", c.id), zap.Error(err))
		env.record(c, KindHookError, fmt.Sprintf("%s/%s: %v", owner, hook, err), nil)
	}
}
