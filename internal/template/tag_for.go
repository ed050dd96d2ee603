package template

import (
	"slices"
	"strings"
)

type forNode struct {
	pos
	vars     []string
	seq      *FilterExpression
	reversed bool
	body     NodeList
	empty    NodeList
}

// parseFor handles `for x in seq`, `for k, v in seq`, an optional trailing
// `reversed`, and an {% empty %} branch.
func parseFor(p *Parser, tag Tag) (Node, error) {
	args := tag.Args
	n := &forNode{pos: pos(tag.Line)}
	if len(args) > 0 && args[len(args)-1] == "reversed" {
		n.reversed = true
		args = args[:len(args)-1]
	}
	in := slices.Index(args, "in")
	if in < 1 || in != len(args)-2 {
		return nil, p.syntaxError("for expects `for x in sequence`, got %q", tag.Content)
	}
	for _, v := range strings.Split(strings.Join(args[:in], " "), ",") {
		v = strings.TrimSpace(v)
		if v == "" || strings.ContainsAny(v, " \t") {
			return nil, p.syntaxError("invalid loop variable in %q", tag.Content)
		}
		n.vars = append(n.vars, v)
	}
	seq, err := p.compileFilter(args[in+1])
	if err != nil {
		return nil, err
	}
	n.seq = seq
	body, stop, err := p.Parse("empty", "endfor")
	if err != nil {
		return nil, err
	}
	n.body = body
	if stop.Name == "empty" {
		if n.empty, _, err = p.Parse("endfor"); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *forNode) Render(w *strings.Builder, c *Context) error {
	v, err := n.seq.Resolve(c)
	if err != nil {
		return err
	}

	var items []any
	if pairs, ok := mapItems(v); ok && len(n.vars) == 2 {
		for _, kv := range pairs {
			items = append(items, []any{kv[0], kv[1]})
		}
	} else {
		items = iterate(v)
	}
	if len(items) == 0 {
		return n.empty.Render(w, c)
	}
	if n.reversed {
		items = slices.Clone(items)
		slices.Reverse(items)
	}

	parent, _ := c.Lookup("forloop")
	c.Push()
	defer c.Pop()
	total := len(items)
	for i, item := range items {
		c.Set("forloop", map[string]any{
			"counter0":    i,
			"counter":     i + 1,
			"revcounter":  total - i,
			"revcounter0": total - i - 1,
			"first":       i == 0,
			"last":        i == total-1,
			"parentloop":  parent,
		})
		if len(n.vars) == 1 {
			c.Set(n.vars[0], item)
		} else {
			parts := iterate(item)
			for j, name := range n.vars {
				var x any
				if j < len(parts) {
					x = parts[j]
				}
				c.Set(name, x)
			}
		}
		if err := n.body.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}
