// Package script runs ability formulas that are too complex for the
// arithmetic parser inside a pool of locked-down goja VMs.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a script exceeds the execution time limit.
var ErrTimeout = errors.New("script: execution timed out")

// ErrPanic is returned when the VM panics while running a script.
var ErrPanic = errors.New("script: uncaught exception")

// ErrNotNumeric is returned by EvalNumber when the script result is not a number.
var ErrNotNumeric = errors.New("script: result is not a number")

// Bindings are the globals visible to a script. A and B are exposed as the
// read-only objects "a" and "b" (attacker and defender stats).
type Bindings struct {
	A, B map[string]float64
	Vars map[string]any
}

// VMPool is a thread-safe pool of pre-initialised goja runtimes.
type VMPool struct {
	pool    chan *goja.Runtime
	timeout time.Duration
	logger  *zap.Logger
	size    int
}

// NewVMPool creates a VMPool with the given concurrency size and per-script timeout.
func NewVMPool(size int, timeout time.Duration, logger *zap.Logger) *VMPool {
	if size <= 0 {
		size = 4
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &VMPool{
		pool:    make(chan *goja.Runtime, size),
		timeout: timeout,
		logger:  logger,
		size:    size,
	}
	for i := 0; i < size; i++ {
		p.pool <- newSafeVM()
	}
	return p
}

// Size returns the number of VMs in the pool.
func (p *VMPool) Size() int { return p.size }

// Run executes src inside a pooled VM with the given bindings and returns
// the exported value of the last expression.
func (p *VMPool) Run(ctx context.Context, src string, b *Bindings) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case vm := <-p.pool:
		// A VM interrupted by a timeout is replaced instead of returned.
		tainted := false
		defer func() {
			if tainted {
				p.pool <- newSafeVM()
				return
			}
			p.pool <- vm
		}()
		return p.runVM(ctx, vm, src, b, &tainted)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *VMPool) runVM(ctx context.Context, vm *goja.Runtime, src string, b *Bindings, tainted *bool) (any, error) {
	bind(vm, b)
	defer unbind(vm, b)

	timer := time.AfterFunc(p.timeout, func() { vm.Interrupt(ErrTimeout) })
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer func() {
		timer.Stop()
		stop()
		if !*tainted {
			vm.ClearInterrupt()
		}
	}()

	var result goja.Value
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		result, runErr = vm.RunString(src)
	}()

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			*tainted = true
			if err, ok := interrupted.Value().(error); ok {
				return nil, err
			}
			return nil, ErrTimeout
		}
		var ex *goja.Exception
		if errors.As(runErr, &ex) {
			return nil, errors.New(ex.Error())
		}
		return nil, runErr
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

// newSafeVM creates a goja Runtime with dangerous globals removed and a
// deterministic Math object.
func newSafeVM() *goja.Runtime {
	vm := goja.New()
	for _, name := range []string{"require", "process", "fetch", "XMLHttpRequest", "eval", "Function"} {
		vm.Set(name, goja.Undefined())
	}
	mathObj := vm.NewObject()
	_ = mathObj.Set("floor", math.Floor)
	_ = mathObj.Set("ceil", math.Ceil)
	_ = mathObj.Set("round", func(v float64) float64 { return math.Floor(v + 0.5) })
	_ = mathObj.Set("abs", math.Abs)
	_ = mathObj.Set("sqrt", math.Sqrt)
	_ = mathObj.Set("pow", math.Pow)
	_ = mathObj.Set("max", func(vs ...float64) float64 {
		out := math.Inf(-1)
		for _, v := range vs {
			out = math.Max(out, v)
		}
		return out
	})
	_ = mathObj.Set("min", func(vs ...float64) float64 {
		out := math.Inf(1)
		for _, v := range vs {
			out = math.Min(out, v)
		}
		return out
	})
	_ = mathObj.Set("random", func() float64 { return 0 })
	vm.Set("Math", mathObj)
	return vm
}

// bind exposes the stat maps as frozen objects.
func bind(vm *goja.Runtime, b *Bindings) {
	if b == nil {
		return
	}
	vm.Set("a", statObject(vm, b.A))
	vm.Set("b", statObject(vm, b.B))
	for k, v := range b.Vars {
		vm.Set(k, v)
	}
}

func unbind(vm *goja.Runtime, b *Bindings) {
	if b == nil {
		return
	}
	vm.Set("a", goja.Undefined())
	vm.Set("b", goja.Undefined())
	for k := range b.Vars {
		vm.Set(k, goja.Undefined())
	}
}

func statObject(vm *goja.Runtime, stats map[string]float64) *goja.Object {
	obj := vm.NewObject()
	for k, v := range stats {
		_ = obj.Set(k, v)
	}
	if freeze, ok := goja.AssertFunction(vm.Get("Object").ToObject(vm).Get("freeze")); ok {
		_, _ = freeze(goja.Undefined(), obj)
	}
	return obj
}

// Sandbox wraps a VMPool and logs failed scripts.
type Sandbox struct {
	pool   *VMPool
	logger *zap.Logger
}

// NewSandbox creates a Sandbox backed by a VMPool.
func NewSandbox(size int, timeout time.Duration, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{
		pool:   NewVMPool(size, timeout, logger),
		logger: logger,
	}
}

// Eval executes src with the given bindings, returning the result.
func (sb *Sandbox) Eval(ctx context.Context, src string, b *Bindings) (any, error) {
	result, err := sb.pool.Run(ctx, src, b)
	if err != nil {
		sb.logger.Warn("script execution error",
			zap.String("src_preview", truncate(src, 80)),
			zap.Error(err))
	}
	return result, err
}

// EvalNumber runs src and converts the result to float64.
func (sb *Sandbox) EvalNumber(ctx context.Context, src string, b *Bindings) (float64, error) {
	out, err := sb.Eval(ctx, src, b)
	if err != nil {
		return 0, err
	}
	switch v := out.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrNotNumeric, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
