package formula

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kasuganosora/arena/game/script"
	"go.uber.org/zap"
)

// Evaluator parses arithmetic formulas natively and hands anything the
// parser rejects on syntax to the script sandbox, when one is configured.
// It satisfies combat.FormulaEvaluator.
type Evaluator struct {
	mu      sync.RWMutex
	funcs   map[string]Func
	sandbox *script.Sandbox
	logger  *zap.Logger
}

// NewEvaluator creates an Evaluator. sandbox may be nil, in which case
// script-only formulas fail with ErrNeedsScript.
func NewEvaluator(sandbox *script.Sandbox, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcs := make(map[string]Func, len(defaultFuncs))
	for k, v := range defaultFuncs {
		funcs[k] = v
	}
	return &Evaluator{funcs: funcs, sandbox: sandbox, logger: logger}
}

// Register adds or replaces a custom function callable from formulas.
// It is not visible to the script fallback.
func (e *Evaluator) Register(name string, fn Func) {
	e.mu.Lock()
	e.funcs[name] = fn
	e.mu.Unlock()
}

// Eval evaluates formula with attacker stats a and defender stats b.
func (e *Evaluator) Eval(ctx context.Context, formula string, a, b map[string]float64) (float64, error) {
	e.mu.RLock()
	v, err := eval(formula, a, b, e.funcs)
	e.mu.RUnlock()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNeedsScript) && !errors.Is(err, ErrSyntax) {
		return 0, err
	}
	if e.sandbox == nil {
		return 0, err
	}
	e.logger.Debug("formula falls back to script", zap.String("formula", formula), zap.NamedError("parse", err))
	v, serr := e.sandbox.EvalNumber(ctx, formula, &script.Bindings{A: a, B: b})
	if serr != nil {
		return 0, fmt.Errorf("script formula %q: %w", formula, serr)
	}
	return v, nil
}
