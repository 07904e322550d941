// Package condition compiles boolean filter expressions over event fields,
// for example:
//
//	durationMs > 150 AND attributes.http.status_code >= 500
//	level == "error" OR message.type contains "payment"
//	NOT (serviceName matches "^billing-")
package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// node is a compiled boolean expression.
type node interface {
	eval(r Resolver) bool
}

type andNode struct{ left, right node }
type orNode struct{ left, right node }
type notNode struct{ inner node }

type compareNode struct {
	left, right operand
	op          Operator
	re          *regexp.Regexp // set for matches
}

// operand is a literal or a dotted field path.
type operand struct {
	lit   event.Value
	path  []string
	field bool
}

func (o operand) resolve(r Resolver) (event.Value, bool) {
	if !o.field {
		return o.lit, true
	}
	return r.Resolve(o.path)
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOp
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-'
}

func tokenize(src string) ([]token, error) {
	var out []token
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			out = append(out, token{tokLParen, "(", i})
			i++
		case r == ')':
			out = append(out, token{tokRParen, ")", i})
			i++
		case strings.ContainsRune("=!<>", r):
			if i+1 < len(src) && src[i+1] == '=' {
				out = append(out, token{tokOp, src[i : i+2], i})
				i += 2
				continue
			}
			if r == '=' || r == '!' {
				return nil, fmt.Errorf("position %d: %q is not an operator", i, r)
			}
			out = append(out, token{tokOp, string(r), i})
			i++
		case r == '"' || r == '\'':
			s, n, err := readQuoted(src[i:], byte(r))
			if err != nil {
				return nil, fmt.Errorf("position %d: %w", i, err)
			}
			out = append(out, token{tokString, s, i})
			i += n
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i + 1
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.' || src[j] == 'e' || src[j] == 'E') {
				j++
			}
			out = append(out, token{tokNumber, src[i:j], i})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(src) {
				wr, ws := utf8.DecodeRuneInString(src[j:])
				if !isWordRune(wr) {
					break
				}
				j += ws
			}
			out = append(out, token{tokWord, src[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("position %d: unexpected %q", i, r)
		}
	}
	return append(out, token{tokEOF, "", len(src)}), nil
}

// readQuoted returns the unescaped body of a quoted string and the number
// of bytes consumed including both quotes.
func readQuoted(s string, quote byte) (string, int, error) {
	var b strings.Builder
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if j+1 < len(s) {
				j++
				b.WriteByte(s[j])
			}
		case quote:
			return b.String(), j + 1, nil
		default:
			b.WriteByte(s[j])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokWord && strings.EqualFold(t.val, kw) {
		p.pos++
		return true
	}
	return false
}

// or = and { OR and }
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

// and = unary { AND unary }
func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

// unary = NOT unary | "(" or ")" | comparison
func (p *parser) parseUnary() (node, error) {
	if p.keyword("NOT") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("position %d: expected ), got %q", t.pos, t.val)
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t := p.next()
	var op Operator
	switch {
	case t.kind == tokOp:
		op = Operator(t.val)
	case t.kind == tokWord && strings.EqualFold(t.val, string(OpContains)):
		op = OpContains
	case t.kind == tokWord && strings.EqualFold(t.val, string(OpMatches)):
		op = OpMatches
	default:
		return nil, fmt.Errorf("position %d: expected an operator, got %q", t.pos, t.val)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	c := compareNode{left: left, right: right, op: op}
	if op == OpMatches {
		pattern, ok := right.lit.AsString()
		if right.field || !ok {
			return nil, fmt.Errorf("position %d: matches needs a quoted pattern", t.pos)
		}
		if c.re, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("position %d: %w", t.pos, err)
		}
	}
	return c, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return operand{lit: event.String(t.val)}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return operand{}, fmt.Errorf("position %d: bad number %q", t.pos, t.val)
		}
		return operand{lit: event.Number(f)}, nil
	case tokWord:
		switch strings.ToLower(t.val) {
		case "true":
			return operand{lit: event.Bool(true)}, nil
		case "false":
			return operand{lit: event.Bool(false)}, nil
		case "null":
			return operand{lit: event.Null()}, nil
		}
		return operand{path: strings.Split(t.val, "."), field: true}, nil
	}
	return operand{}, fmt.Errorf("position %d: expected a field or value, got %q", t.pos, t.val)
}
