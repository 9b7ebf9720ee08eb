package formula

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kasuganosora/arena/game/script"
	"go.uber.org/zap"
)

var (
	attacker = map[string]float64{"physicalDamage": 120, "magicalDamage": 80, "lifesteal": 0.1, "maxHp": 1000}
	defender = map[string]float64{"armor": 50, "magicalShield": 20, "maxHp": 800}
)

func TestEval_BasicArithmetic(t *testing.T) {
	v, err := Eval("a.physicalDamage * 1.5 - b.armor * 0.2", attacker, defender)
	if err != nil {
		t.Fatal(err)
	}
	if v != 170 {
		t.Errorf("got %f, want 170", v)
	}
}

func TestEval_Precedence(t *testing.T) {
	v, err := Eval("2 + 3 * (4 - 1) / 3", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("got %f, want 5", v)
	}
}

func TestEval_UnaryMinus(t *testing.T) {
	v, err := Eval("-b.armor + 100", attacker, defender)
	if err != nil {
		t.Fatal(err)
	}
	if v != 50 {
		t.Errorf("got %f, want 50", v)
	}
}

func TestEval_MathFuncs(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"Math.floor(a.physicalDamage / 7)", 17},
		{"Math.ceil(10 / 4)", 3},
		{"Math.round(2.5)", 3},
		{"Math.abs(-4)", 4},
		{"Math.max(1, b.armor, 3)", 50},
		{"Math.min(a.magicalDamage, b.maxHp)", 80},
		{"Math.sqrt(16)", 4},
		{"Math.pow(2, 10)", 1024},
		{"clamp(a.physicalDamage, 0, 100)", 100},
	}
	for _, c := range cases {
		v, err := Eval(c.src, attacker, defender)
		if err != nil {
			t.Fatalf("%s: %v", c.src, err)
		}
		if math.Abs(v-c.want) > 1e-9 {
			t.Errorf("%s: got %f, want %f", c.src, v, c.want)
		}
	}
}

func TestEval_StatNameContainingKeyword(t *testing.T) {
	// "lifesteal" contains "if" but is a plain stat reference.
	v, err := Eval("a.lifesteal * 10", attacker, defender)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-1) > 1e-9 {
		t.Errorf("got %f, want 1", v)
	}
}

func TestEval_Errors(t *testing.T) {
	cases := []struct {
		src  string
		want error
	}{
		{"a.charisma * 2", ErrUnknownStat},
		{"10 / (b.armor - 50)", ErrDivideByZero},
		{"a.physicalDamage *", ErrSyntax},
		{"(1 + 2", ErrSyntax},
		{"1 2", ErrSyntax},
		{"frobnicate(1)", ErrUnknownFunc},
		{"a.maxHp > 10 ? 1 : 0", ErrNeedsScript},
		{"var x = 1; x", ErrNeedsScript},
	}
	for _, c := range cases {
		_, err := Eval(c.src, attacker, defender)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.src, err, c.want)
		}
	}
}

func TestEvaluator_CustomFunc(t *testing.T) {
	e := NewEvaluator(nil, zap.NewNop())
	e.Register("half", func(args []float64) (float64, error) { return args[0] / 2, nil })
	v, err := e.Eval(context.Background(), "half(a.physicalDamage)", attacker, defender)
	if err != nil {
		t.Fatal(err)
	}
	if v != 60 {
		t.Errorf("got %f, want 60", v)
	}
	if _, err := Eval("half(1)", nil, nil); !errors.Is(err, ErrUnknownFunc) {
		t.Errorf("custom func leaked into default set: %v", err)
	}
}

func TestEvaluator_ScriptFallback(t *testing.T) {
	e := NewEvaluator(script.NewSandbox(1, 200*time.Millisecond, zap.NewNop()), zap.NewNop())
	v, err := e.Eval(context.Background(), "b.armor > 40 ? a.physicalDamage : a.magicalDamage", attacker, defender)
	if err != nil {
		t.Fatal(err)
	}
	if v != 120 {
		t.Errorf("got %f, want 120", v)
	}
}

func TestEvaluator_NoFallbackForStatErrors(t *testing.T) {
	e := NewEvaluator(script.NewSandbox(1, 200*time.Millisecond, zap.NewNop()), zap.NewNop())
	_, err := e.Eval(context.Background(), "a.charisma", attacker, defender)
	if !errors.Is(err, ErrUnknownStat) {
		t.Errorf("got %v, want ErrUnknownStat", err)
	}
}

func TestEvaluator_NoSandbox(t *testing.T) {
	e := NewEvaluator(nil, nil)
	_, err := e.Eval(context.Background(), "if (true) { 1 }", attacker, defender)
	if !errors.Is(err, ErrNeedsScript) {
		t.Errorf("got %v, want ErrNeedsScript", err)
	}
}
