package condition

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEq       Operator = "=="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)

// Resolver looks up a dotted field path on one event.
type Resolver interface {
	Resolve(path []string) (event.Value, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(path []string) (event.Value, bool)

func (f ResolverFunc) Resolve(path []string) (event.Value, bool) { return f(path) }

// Condition is a compiled expression. It is immutable and safe for
// concurrent use.
type Condition struct {
	src  string
	root node
}

// Compile parses src. All syntax errors, including bad regular
// expressions, are reported here; evaluation never fails.
func Compile(src string) (*Condition, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	if len(tokens) == 1 {
		return nil, fmt.Errorf("condition: empty expression")
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("condition: position %d: unexpected %q", t.pos, t.val)
	}
	return &Condition{src: src, root: root}, nil
}

func (c *Condition) String() string { return c.src }

// Match evaluates the condition against one event. A comparison that
// refers to a missing field is false.
func (c *Condition) Match(r Resolver) bool { return c.root.eval(r) }

func (n andNode) eval(r Resolver) bool { return n.left.eval(r) && n.right.eval(r) }
func (n orNode) eval(r Resolver) bool  { return n.left.eval(r) || n.right.eval(r) }
func (n notNode) eval(r Resolver) bool { return !n.inner.eval(r) }

func (n compareNode) eval(r Resolver) bool {
	left, ok := n.left.resolve(r)
	if !ok {
		return false
	}
	right, ok := n.right.resolve(r)
	if !ok {
		return false
	}
	switch n.op {
	case OpEq:
		return equal(left, right)
	case OpNeq:
		return !equal(left, right)
	case OpGt, OpGte, OpLt, OpLte:
		return ordered(n.op, left, right)
	case OpContains:
		return strings.Contains(strings.ToLower(left.Text()), strings.ToLower(right.Text()))
	case OpMatches:
		return n.re.MatchString(left.Text())
	}
	return false
}

// number reads a numeric value, accepting numeric strings since attributes
// often carry numbers as text.
func number(v event.Value) (float64, bool) {
	if f, ok := v.AsNumber(); ok {
		return f, true
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

func equal(a, b event.Value) bool {
	if a.Kind() == event.KindNumber || b.Kind() == event.KindNumber {
		af, aok := number(a)
		bf, bok := number(b)
		if aok && bok {
			return math.Abs(af-bf) < 1e-9
		}
		return false
	}
	if a.Kind() != b.Kind() && (a.IsNull() || b.IsNull()) {
		return false
	}
	return a.Text() == b.Text()
}

func ordered(op Operator, a, b event.Value) bool {
	af, aok := number(a)
	bf, bok := number(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case OpGt:
		return af > bf
	case OpGte:
		return af >= bf
	case OpLt:
		return af < bf
	case OpLte:
		return af <= bf
	}
	return false
}
