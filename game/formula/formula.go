// Package formula evaluates ability damage formulas such as
// "a.physicalDamage * 1.5 - b.armor * 0.2".
//
// Variables: a.<stat> (attacker), b.<stat> (defender)
// Operators: + - * / with parentheses and unary minus.
// Functions: Math.floor, Math.ceil, Math.round, Math.max, Math.min,
// Math.abs, Math.sqrt, Math.pow and any registered custom function.
package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrNeedsScript marks a formula that uses JS statements the parser
	// does not support; callers may hand it to the script sandbox.
	ErrNeedsScript = errors.New("formula: requires script sandbox")
	// ErrSyntax is returned for malformed expressions.
	ErrSyntax = errors.New("formula: syntax error")
	// ErrUnknownStat is returned when a.<x> or b.<x> is not bound.
	ErrUnknownStat = errors.New("formula: unknown stat")
	// ErrDivideByZero is returned for x / 0.
	ErrDivideByZero = errors.New("formula: division by zero")
	// ErrUnknownFunc is returned for calls to unregistered functions.
	ErrUnknownFunc = errors.New("formula: unknown function")
)

// Func is a custom formula function.
type Func func(args []float64) (float64, error)

// Eval evaluates formula with the default function set.
func Eval(formula string, a, b map[string]float64) (float64, error) {
	return eval(formula, a, b, defaultFuncs)
}

func eval(formula string, a, b map[string]float64, funcs map[string]Func) (float64, error) {
	if needsScript(formula) {
		return 0, fmt.Errorf("%w: %q", ErrNeedsScript, formula)
	}
	p := &parser{input: formula, a: a, b: b, funcs: funcs}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.peek() != 0 {
		return 0, fmt.Errorf("%w: unexpected chars at pos %d: %q", ErrSyntax, p.pos, p.input[p.pos:])
	}
	return v, nil
}

var scriptKeywords = map[string]bool{
	"if": true, "else": true, "function": true, "var": true, "let": true,
	"const": true, "return": true, "while": true, "for": true,
}

// needsScript reports whether formula contains statements or operators
// only the JS sandbox understands.
func needsScript(formula string) bool {
	if strings.ContainsAny(formula, ";{}?<>=!&|") {
		return true
	}
	words := strings.FieldsFunc(formula, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, w := range words {
		if scriptKeywords[w] {
			return true
		}
	}
	return false
}

// ---- Recursive-descent parser ----

type parser struct {
	input string
	pos   int
	a, b  map[string]float64
	funcs map[string]Func
}

func (p *parser) skipWS() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) consume() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	ch := p.input[p.pos]
	p.pos++
	return ch
}

// parseExpr = parseTerm (('+' | '-') parseTerm)*
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		ch := p.peek()
		if ch != '+' && ch != '-' {
			break
		}
		p.consume()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if ch == '+' {
			v += right
		} else {
			v -= right
		}
	}
	return v, nil
}

// parseTerm = parseFactor (('*' | '/') parseFactor)*
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		ch := p.peek()
		if ch != '*' && ch != '/' {
			break
		}
		p.consume()
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if ch == '*' {
			v *= right
		} else {
			if right == 0 {
				return 0, ErrDivideByZero
			}
			v /= right
		}
	}
	return v, nil
}

// parseFactor = '(' parseExpr ')' | '-' factor | number | variable | call
func (p *parser) parseFactor() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.consume()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.consume() != ')' {
			return 0, fmt.Errorf("%w: expected ')'", ErrSyntax)
		}
		return v, nil

	case ch == '-':
		p.consume()
		v, err := p.parseFactor()
		return -v, err

	case ch == '+':
		p.consume()
		return p.parseFactor()

	case unicode.IsDigit(rune(ch)) || ch == '.':
		return p.parseNumber()

	case (ch == 'a' || ch == 'b') && p.pos+1 < len(p.input) && p.input[p.pos+1] == '.':
		return p.parseVariable()

	case unicode.IsLetter(rune(ch)) || ch == '_':
		return p.parseCall()

	case ch == 0:
		return 0, fmt.Errorf("%w: unexpected end of formula", ErrSyntax)

	default:
		return 0, fmt.Errorf("%w: unexpected character %q at pos %d", ErrSyntax, ch, p.pos)
	}
}

func (p *parser) parseNumber() (float64, error) {
	p.skipWS()
	start := p.pos
	hasDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' && !hasDot {
			hasDot = true
			p.pos++
		} else if c >= '0' && c <= '9' {
			p.pos++
		} else {
			break
		}
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, p.input[start:p.pos])
	}
	return v, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) parseVariable() (float64, error) {
	p.skipWS()
	who := p.input[p.pos]
	p.pos += 2 // "a." or "b."
	field := p.ident()
	if field == "" {
		return 0, fmt.Errorf("%w: expected stat name after '%c.'", ErrSyntax, who)
	}
	stats := p.a
	if who == 'b' {
		stats = p.b
	}
	v, ok := stats[field]
	if !ok {
		return 0, fmt.Errorf("%w: %c.%s", ErrUnknownStat, who, field)
	}
	return v, nil
}

// parseCall handles Math.xxx(...) and registered custom functions.
func (p *parser) parseCall() (float64, error) {
	p.skipWS()
	name := p.ident()
	if name == "Math" {
		if p.pos >= len(p.input) || p.input[p.pos] != '.' {
			return 0, fmt.Errorf("%w: expected Math.xxx at pos %d", ErrSyntax, p.pos)
		}
		p.pos++
		name = "Math." + p.ident()
	}
	if p.consume() != '(' {
		return 0, fmt.Errorf("%w: expected '(' after %s", ErrSyntax, name)
	}
	var args []float64
	for {
		if p.peek() == ')' {
			p.consume()
			break
		}
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		args = append(args, v)
		switch p.peek() {
		case ',':
			p.consume()
		case ')':
		default:
			return 0, fmt.Errorf("%w: expected ',' or ')' in %s", ErrSyntax, name)
		}
	}
	fn, ok := p.funcs[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownFunc, name)
	}
	return fn(args)
}

func unary(name string, f func(float64) float64) Func {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s expects 1 argument", name)
		}
		return f(args[0]), nil
	}
}

func fold(name string, f func(a, b float64) float64) Func {
	return func(args []float64) (float64, error) {
		if len(args) == 0 {
			return 0, fmt.Errorf("%s expects >=1 argument", name)
		}
		v := args[0]
		for _, a := range args[1:] {
			v = f(v, a)
		}
		return v, nil
	}
}

var defaultFuncs = map[string]Func{
	"Math.floor": unary("Math.floor", math.Floor),
	"Math.ceil":  unary("Math.ceil", math.Ceil),
	"Math.round": unary("Math.round", func(v float64) float64 { return math.Floor(v + 0.5) }),
	"Math.abs":   unary("Math.abs", math.Abs),
	"Math.sqrt":  unary("Math.sqrt", math.Sqrt),
	"Math.max":   fold("Math.max", math.Max),
	"Math.min":   fold("Math.min", math.Min),
	"Math.pow": func(args []float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("Math.pow expects 2 arguments")
		}
		return math.Pow(args[0], args[1]), nil
	},
	// clamp(v, lo, hi)
	"clamp": func(args []float64) (float64, error) {
		if len(args) != 3 {
			return 0, fmt.Errorf("clamp expects 3 arguments")
		}
		return math.Max(args[1], math.Min(args[2], args[0])), nil
	},
}
