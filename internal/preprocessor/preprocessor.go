// Package preprocessor implements the "!#if", "!#else" and "!#endif"
// directives of filter lists.
package preprocessor

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/bnema/adblock-engine/internal/dataview"
)

// Env holds the values of the identifiers conditions refer to, such as
// "env_firefox" or "cap_html_filtering".
type Env map[string]bool

// Directive is the kind of a preprocessor line.
type Directive uint8

// Directive values.
const (
	DirectiveInvalid Directive = iota
	DirectiveIf
	DirectiveElse
	DirectiveEndif
)

const ifPrefix = "!#if "

// Detect returns the directive of line.  "!#if x" and "!#else" are the
// shortest valid lines.
func Detect(line string) (d Directive) {
	if len(line) < 6 || !strings.HasPrefix(line, "!#") {
		return DirectiveInvalid
	}

	switch {
	case strings.HasPrefix(line, ifPrefix):
		return DirectiveIf
	case strings.HasPrefix(line, "!#else"):
		return DirectiveElse
	case strings.HasPrefix(line, "!#endif"):
		return DirectiveEndif
	default:
		return DirectiveInvalid
	}
}

// Condition returns the condition of an "!#if" line without whitespace.
func Condition(line string) (cond string) {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, strings.TrimPrefix(line, ifPrefix))
}

// Preprocessor is a condition and the filters it gates.
type Preprocessor struct {
	FilterIDs map[uint32]struct{}
	Condition string
}

// New returns a preprocessor for the "!#if" line gating the filters with the
// given ids.
func New(line string, ids ...uint32) (p *Preprocessor) {
	return FromCondition(Condition(line), ids...)
}

// FromCondition returns a preprocessor for cond gating the filters with the
// given ids.
func FromCondition(cond string, ids ...uint32) (p *Preprocessor) {
	p = &Preprocessor{
		Condition: cond,
		FilterIDs: make(map[uint32]struct{}, len(ids)),
	}
	for _, id := range ids {
		p.FilterIDs[id] = struct{}{}
	}

	return p
}

// Evaluate returns the value of the condition of p in env.
func (p *Preprocessor) Evaluate(env Env) (ok bool) { return Evaluate(p.Condition, env) }

// SortedIDs returns the gated filter ids in ascending order.
func (p *Preprocessor) SortedIDs() (ids []uint32) {
	return slices.Sorted(maps.Keys(p.FilterIDs))
}

// Serialize writes p to v: the condition then the count and ids of the
// gated filters.
func (p *Preprocessor) Serialize(v *dataview.View) {
	v.PushUTF8(p.Condition)
	v.PushUint32(uint32(len(p.FilterIDs)))
	for _, id := range p.SortedIDs() {
		v.PushUint32(id)
	}
}

// SerializedSize returns the number of bytes Serialize writes.
func (p *Preprocessor) SerializedSize() (n int) {
	return dataview.SizeOfUTF8(p.Condition) + (1+len(p.FilterIDs))*4
}

// Deserialize reads a preprocessor written by Serialize.
func Deserialize(v *dataview.View) (p *Preprocessor) {
	p = &Preprocessor{Condition: v.GetUTF8()}
	n := v.GetUint32()
	p.FilterIDs = make(map[uint32]struct{}, min(n, uint32(v.Len())))
	for range n {
		if v.Err() != nil {
			break
		}
		p.FilterIDs[v.GetUint32()] = struct{}{}
	}

	return p
}

var (
	reToken      = regexp.MustCompile(`!|&&|\|\||\(|\)|[a-zA-Z0-9_]+`)
	reIdentifier = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// precedence of the operators.  "!" is unary and right-associative.
var precedence = map[string]int{
	"!":  2,
	"&&": 1,
	"||": 0,
}

// lookup returns the value of an identifier.  The literals "true" and
// "false" can be overridden by env.
func lookup(ident string, env Env) (ok bool) {
	value, defined := env[ident]
	if defined {
		return value
	}

	return ident == "true"
}

// Evaluate returns the value of a condition made of identifiers, "!", "&&",
// "||" and parentheses.  Malformed expressions evaluate to false.
func Evaluate(expr string, env Env) (ok bool) {
	if expr == "" {
		return false
	}

	if reIdentifier.MatchString(expr) {
		return lookup(expr, env)
	}

	toks := reToken.FindAllString(expr, -1)
	total := 0
	for _, tok := range toks {
		total += len(tok)
	}

	if len(toks) == 0 || total != len(expr) {
		return false
	}

	output, ok := toPostfix(toks, env)
	if !ok {
		return false
	}

	return evalPostfix(output)
}

// postfixItem is either an operand value or an operator.
type postfixItem struct {
	op    string
	value bool
}

// toPostfix converts toks to reverse Polish notation with the shunting-yard
// algorithm, resolving identifiers on the way.
func toPostfix(toks []string, env Env) (output []postfixItem, ok bool) {
	var ops []string
	for _, tok := range toks {
		switch tok {
		case "(":
			ops = append(ops, tok)
		case ")":
			for len(ops) > 0 && ops[len(ops)-1] != "(" {
				output = append(output, postfixItem{op: ops[len(ops)-1]})
				ops = ops[:len(ops)-1]
			}

			if len(ops) == 0 {
				return nil, false
			}
			ops = ops[:len(ops)-1]
		case "!", "&&", "||":
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				topPrec, isOp := precedence[top]
				if !isOp || topPrec < precedence[tok] || (tok == "!" && topPrec == precedence[tok]) {
					break
				}

				output = append(output, postfixItem{op: top})
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, tok)
		default:
			output = append(output, postfixItem{value: lookup(tok, env)})
		}
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		if top == "(" {
			return nil, false
		}

		output = append(output, postfixItem{op: top})
		ops = ops[:len(ops)-1]
	}

	return output, true
}

// evalPostfix evaluates output.  Missing operands make it false.
func evalPostfix(output []postfixItem) (ok bool) {
	var stack []bool
	pop := func() (v bool, ok bool) {
		if len(stack) == 0 {
			return false, false
		}
		v = stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		return v, true
	}

	for _, item := range output {
		switch item.op {
		case "":
			stack = append(stack, item.value)
		case "!":
			v, ok := pop()
			if !ok {
				return false
			}
			stack = append(stack, !v)
		default:
			right, okRight := pop()
			left, okLeft := pop()
			if !okRight || !okLeft {
				return false
			}

			if item.op == "&&" {
				stack = append(stack, left && right)
			} else {
				stack = append(stack, left || right)
			}
		}
	}

	return len(stack) == 1 && stack[0]
}
