package template

import (
	"strings"
)

// condition is a node of a parsed if expression.
type condition interface {
	eval(c *Context) (any, error)
}

type operandCond struct{ expr *FilterExpression }

func (o operandCond) eval(c *Context) (any, error) { return o.expr.Resolve(c) }

type notCond struct{ x condition }

func (o notCond) eval(c *Context) (any, error) {
	v, err := o.x.eval(c)
	return !truthy(v), err
}

type binaryCond struct {
	op   string
	l, r condition
}

func (o binaryCond) eval(c *Context) (any, error) {
	l, err := o.l.eval(c)
	if err != nil {
		return nil, err
	}
	switch o.op {
	case "or":
		if truthy(l) {
			return true, nil
		}
		r, err := o.r.eval(c)
		return truthy(r), err
	case "and":
		if !truthy(l) {
			return false, nil
		}
		r, err := o.r.eval(c)
		return truthy(r), err
	}
	r, err := o.r.eval(c)
	if err != nil {
		return nil, err
	}
	switch o.op {
	case "==":
		return equalValues(l, r), nil
	case "!=":
		return !equalValues(l, r), nil
	case "in":
		return contains(r, l), nil
	case "not in":
		return !contains(r, l), nil
	}
	cmp, ok := compareValues(l, r)
	if !ok {
		return false, nil
	}
	switch o.op {
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return cmp >= 0, nil
	}
}

var infixPower = map[string]int{
	"or": 6, "and": 7,
	"in": 9, "not in": 9,
	"==": 10, "!=": 10, "<": 10, ">": 10, "<=": 10, ">=": 10,
}

const notPower = 8

// condParser is a precedence-climbing parser over the words of an if tag.
type condParser struct {
	p     *Parser
	words []string
	i     int
}

func (cp *condParser) peek() string {
	if cp.i >= len(cp.words) {
		return ""
	}
	w := cp.words[cp.i]
	if w == "not" && cp.i+1 < len(cp.words) && cp.words[cp.i+1] == "in" {
		return "not in"
	}
	return w
}

func (cp *condParser) advance(op string) {
	cp.i += len(strings.Fields(op))
}

func (cp *condParser) expression(minPower int) (condition, error) {
	var left condition
	switch w := cp.peek(); {
	case w == "":
		return nil, cp.p.syntaxError("unexpected end of if expression")
	case w == "not":
		cp.advance(w)
		x, err := cp.expression(notPower)
		if err != nil {
			return nil, err
		}
		left = notCond{x: x}
	case infixPower[w] > 0:
		return nil, cp.p.syntaxError("unexpected operator %q in if expression", w)
	default:
		cp.advance(w)
		fe, err := cp.p.compileFilter(w)
		if err != nil {
			return nil, err
		}
		left = operandCond{expr: fe}
	}
	for {
		op := cp.peek()
		if op == "" {
			return left, nil
		}
		power, ok := infixPower[op]
		if !ok {
			return nil, cp.p.syntaxError("unexpected %q in if expression", op)
		}
		if power <= minPower {
			return left, nil
		}
		cp.advance(op)
		right, err := cp.expression(power)
		if err != nil {
			return nil, err
		}
		left = binaryCond{op: op, l: left, r: right}
	}
}

func parseCondition(p *Parser, words []string) (condition, error) {
	if len(words) == 0 {
		return nil, p.syntaxError("if takes a condition")
	}
	cp := &condParser{p: p, words: words}
	cond, err := cp.expression(0)
	if err != nil {
		return nil, err
	}
	if cp.i < len(words) {
		return nil, p.syntaxError("unused %q at end of if expression", strings.Join(words[cp.i:], " "))
	}
	return cond, nil
}

type ifBranch struct {
	cond  condition
	nodes NodeList
}

type ifNode struct {
	pos
	branches []ifBranch
}

// parseIf handles if / elif / else / endif.
func parseIf(p *Parser, tag Tag) (Node, error) {
	n := &ifNode{pos: pos(tag.Line)}
	cond, err := parseCondition(p, tag.Args)
	if err != nil {
		return nil, err
	}
	for {
		nodes, stop, err := p.Parse("elif", "else", "endif")
		if err != nil {
			return nil, err
		}
		n.branches = append(n.branches, ifBranch{cond: cond, nodes: nodes})
		switch stop.Name {
		case "endif":
			return n, nil
		case "else":
			nodes, _, err := p.Parse("endif")
			if err != nil {
				return nil, err
			}
			n.branches = append(n.branches, ifBranch{nodes: nodes})
			return n, nil
		default:
			if cond, err = parseCondition(p, stop.Args); err != nil {
				return nil, err
			}
		}
	}
}

func (n *ifNode) Render(w *strings.Builder, c *Context) error {
	for _, b := range n.branches {
		if b.cond == nil {
			return b.nodes.Render(w, c)
		}
		v, err := b.cond.eval(c)
		if err != nil {
			return err
		}
		if truthy(v) {
			return b.nodes.Render(w, c)
		}
	}
	return nil
}
