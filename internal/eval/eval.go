// Package eval implements deferred property values: small expressions
// evaluated against the property object that owns them.
//
// Supported syntax:
//
//	%Name            reference to property Name (yields a Reference)
//	$Name            current value of property Name
//	1, 2.5, 'text'   literals, plus true and false
//	+ - * /          arithmetic on numbers, + concatenates strings
//	== != < > <= >=  comparisons
//	! && ||          boolean logic
//	if(c, a, b)      conditional
//
// Names may be dotted to address nested objects.
package eval

import (
	"fmt"
	"slices"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Resolver supplies property values to an expression.
type Resolver interface {
	PropertyValue(name string) (any, error)
}

// Reference is the result of a %Name term: the property it points at.
type Reference struct {
	Name string
}

// Value is a parsed, immutable expression.
type Value struct {
	expr string
	root node
	refs []string
}

// Parse compiles an expression.
func Parse(expr string) (*Value, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{src: expr, toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxError(expr, t.pos, "trailing input")
	}
	return &Value{expr: expr, root: root, refs: p.refs}, nil
}

// MustParse is Parse for literals. It panics on a syntax error.
func MustParse(expr string) *Value {
	v, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return v
}

// Expression returns the source text.
func (v *Value) Expression() string { return v.expr }

// String returns the source text.
func (v *Value) String() string { return v.expr }

// References returns every property named by a %Name term.
func (v *Value) References() []string { return slices.Clone(v.refs) }

// Eval evaluates the expression. r may be nil for expressions without
// property terms.
func (v *Value) Eval(r Resolver) (any, error) {
	return v.root.eval(r)
}

// CloneValue returns v; expressions are immutable.
func (v *Value) CloneValue() any { return v }

// EqualValue compares the source text.
func (v *Value) EqualValue(other any) bool {
	o, ok := other.(*Value)
	return ok && o.expr == v.expr
}

type node interface {
	eval(r Resolver) (any, error)
}

type literalNode struct{ v any }

func (n literalNode) eval(Resolver) (any, error) { return n.v, nil }

type refNode struct{ name string }

func (n refNode) eval(Resolver) (any, error) { return Reference{Name: n.name}, nil }

type valueNode struct{ name string }

func (n valueNode) eval(r Resolver) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no owner to resolve $%s", status.ErrInvalidState, n.name)
	}
	return r.PropertyValue(n.name)
}

type ifNode struct{ cond, then, otherwise node }

func (n ifNode) eval(r Resolver) (any, error) {
	c, err := n.cond.eval(r)
	if err != nil {
		return nil, err
	}
	b, err := truthy(c)
	if err != nil {
		return nil, err
	}
	if b {
		return n.then.eval(r)
	}
	return n.otherwise.eval(r)
}

type unaryNode struct {
	op      string
	operand node
}

func (n unaryNode) eval(r Resolver) (any, error) {
	v, err := n.operand.eval(r)
	if err != nil {
		return nil, err
	}
	if n.op == "!" {
		b, err := truthy(v)
		if err != nil {
			return nil, err
		}
		return !b, nil
	}
	switch x := value.Normalize(v).(type) {
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, fmt.Errorf("%w: cannot negate %T", status.ErrInvalidType, v)
}

type binaryNode struct {
	op          string
	left, right node
}

func (n binaryNode) eval(r Resolver) (any, error) {
	l, err := n.left.eval(r)
	if err != nil {
		return nil, err
	}

	if n.op == "&&" || n.op == "||" {
		lb, err := truthy(l)
		if err != nil {
			return nil, err
		}
		if (n.op == "&&" && !lb) || (n.op == "||" && lb) {
			return lb, nil
		}
		rv, err := n.right.eval(r)
		if err != nil {
			return nil, err
		}
		return truthy(rv)
	}

	rv, err := n.right.eval(r)
	if err != nil {
		return nil, err
	}
	l, rv = value.Normalize(l), value.Normalize(rv)

	switch n.op {
	case "==":
		return looseEqual(l, rv), nil
	case "!=":
		return !looseEqual(l, rv), nil
	case "<", ">", "<=", ">=":
		c, ok := value.Compare(l, rv)
		if !ok {
			return nil, fmt.Errorf("%w: cannot compare %T and %T", status.ErrInvalidType, l, rv)
		}
		switch n.op {
		case "<":
			return c < 0, nil
		case ">":
			return c > 0, nil
		case "<=":
			return c <= 0, nil
		default:
			return c >= 0, nil
		}
	}
	return arithmetic(n.op, l, rv)
}

func looseEqual(a, b any) bool {
	if c, ok := value.Compare(a, b); ok {
		return c == 0
	}
	if e, ok := a.(value.Enumeration); ok {
		if s, ok := b.(string); ok {
			return e.Name() == s
		}
	}
	return value.Equal(a, b)
}

func arithmetic(op string, l, r any) (any, error) {
	if ls, ok := l.(string); ok && op == "+" {
		if rs, ok := r.(string); ok {
			return ls + rs, nil
		}
	}
	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	if lInt && rInt {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, fmt.Errorf("%w: division by zero", status.ErrInvalidParameter)
			}
			return li / ri, nil
		}
	}
	lf, err := toFloat(l)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("%w: division by zero", status.ErrInvalidParameter)
		}
		return lf / rf, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", status.ErrInvalidParameter, op)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", status.ErrInvalidType, v)
}

func truthy(v any) (bool, error) {
	switch x := value.Normalize(v).(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	}
	return false, fmt.Errorf("%w: %T is not a condition", status.ErrInvalidType, v)
}
