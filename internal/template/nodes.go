package template

import "strings"

// Node is one compiled piece of a template.
type Node interface {
	Render(w *strings.Builder, c *Context) error
}

// NodeList renders its nodes in order.
type NodeList []Node

func (l NodeList) Render(w *strings.Builder, c *Context) error {
	for _, n := range l {
		if p, ok := n.(positioned); ok {
			c.at(p.line())
		}
		if err := n.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

func (l NodeList) renderString(c *Context) (string, error) {
	var b strings.Builder
	err := l.Render(&b, c)
	return b.String(), err
}

type positioned interface{ line() int }

// pos gives a node the line it was parsed on.
type pos int

func (p pos) line() int { return int(p) }

type textNode struct {
	text string
}

func (n *textNode) Render(w *strings.Builder, _ *Context) error {
	w.WriteString(n.text)
	return nil
}

type variableNode struct {
	pos
	expr *FilterExpression
}

func (n *variableNode) Render(w *strings.Builder, c *Context) error {
	v, err := n.expr.Resolve(c)
	if err != nil {
		return err
	}
	writeValue(w, v, c)
	return nil
}

// writeValue streams v, escaping it unless it is safe or autoescaping is
// off.
func writeValue(w *strings.Builder, v any, c *Context) {
	s := toString(v)
	if c.Autoescape() && !isSafe(v) {
		s = Escape(s)
	}
	w.WriteString(s)
}
