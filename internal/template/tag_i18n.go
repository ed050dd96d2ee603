package template

import (
	"strings"
)

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return unescapeLiteral(s[1 : len(s)-1]), true
	}
	return "", false
}

type i18nNode struct {
	pos
	source  string
	plural  string
	comment string
	numerus bool
	args    []*FilterExpression
	as      string
}

func (n *i18nNode) Render(w *strings.Builder, c *Context) error {
	args := make([]any, len(n.args))
	for i, fe := range n.args {
		v, err := fe.Resolve(c)
		if err != nil {
			return err
		}
		args[i] = v
	}
	l := c.Localizer()
	var out string
	if n.numerus {
		out = l.TranslatePlural(n.source, n.plural, n.comment, args...)
	} else {
		out = l.Translate(n.source, n.comment, args...)
	}
	if n.as != "" {
		c.Set(n.as, out)
		return nil
	}
	writeValue(w, out, c)
	return nil
}

func (p *Parser) compileArgs(raw []string) ([]*FilterExpression, error) {
	out := make([]*FilterExpression, 0, len(raw))
	for _, a := range raw {
		fe, err := p.compileFilter(a)
		if err != nil {
			return nil, err
		}
		out = append(out, fe)
	}
	return out, nil
}

// splitAs strips a trailing `as name` from args when asVar is set.
func splitAs(p *Parser, tag Tag, args []string, asVar bool) ([]string, string, error) {
	if !asVar {
		return args, "", nil
	}
	if len(args) < 2 || args[len(args)-2] != "as" {
		return nil, "", p.syntaxError("%s must end with `as name`", tag.Name)
	}
	return args[:len(args)-2], args[len(args)-1], nil
}

// parseI18n handles i18n 'text' args... and i18nc 'comment' 'text'
// args..., with _var forms storing the result instead of writing it.
func parseI18n(withComment, asVar bool) TagFunc {
	return func(p *Parser, tag Tag) (Node, error) {
		args, as, err := splitAs(p, tag, tag.Args, asVar)
		if err != nil {
			return nil, err
		}
		n := &i18nNode{pos: pos(tag.Line), as: as}
		if withComment {
			if len(args) < 2 {
				return nil, p.syntaxError("%s takes a comment and a source string", tag.Name)
			}
			var ok bool
			if n.comment, ok = unquote(args[0]); !ok {
				return nil, p.syntaxError("%s comment must be a static string", tag.Name)
			}
			args = args[1:]
		}
		if len(args) == 0 {
			return nil, p.syntaxError("%s takes a source string", tag.Name)
		}
		var ok bool
		if n.source, ok = unquote(args[0]); !ok {
			return nil, p.syntaxError("%s source must be a static string", tag.Name)
		}
		if n.args, err = p.compileArgs(args[1:]); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// parseI18np handles i18np 'singular' ['plural'] count args... and
// i18ncp 'comment' 'singular' ['plural'] count args.... The plural text
// defaults to the singular one.
func parseI18np(withComment, asVar bool) TagFunc {
	return func(p *Parser, tag Tag) (Node, error) {
		args, as, err := splitAs(p, tag, tag.Args, asVar)
		if err != nil {
			return nil, err
		}
		n := &i18nNode{pos: pos(tag.Line), as: as, numerus: true}
		if withComment {
			if len(args) < 1 {
				return nil, p.syntaxError("%s takes a comment, a source string and a count", tag.Name)
			}
			var ok bool
			if n.comment, ok = unquote(args[0]); !ok {
				return nil, p.syntaxError("%s comment must be a static string", tag.Name)
			}
			args = args[1:]
		}
		if len(args) < 2 {
			return nil, p.syntaxError("%s takes a source string and a count", tag.Name)
		}
		var ok bool
		if n.source, ok = unquote(args[0]); !ok {
			return nil, p.syntaxError("%s source must be a static string", tag.Name)
		}
		args = args[1:]
		if plural, ok := unquote(args[0]); ok {
			n.plural = plural
			args = args[1:]
		} else {
			n.plural = n.source
		}
		if len(args) == 0 {
			return nil, p.syntaxError("%s takes a count", tag.Name)
		}
		if n.args, err = p.compileArgs(args); err != nil {
			return nil, err
		}
		return n, nil
	}
}

type withLocaleNode struct {
	pos
	locale *FilterExpression
	nodes  NodeList
}

func parseWithLocale(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 1 {
		return nil, p.syntaxError("with_locale takes one argument, for example with_locale \"de_DE\"")
	}
	fe, err := p.compileFilter(tag.Args[0])
	if err != nil {
		return nil, err
	}
	nodes, _, err := p.Parse("endwith_locale")
	if err != nil {
		return nil, err
	}
	return &withLocaleNode{pos: pos(tag.Line), locale: fe, nodes: nodes}, nil
}

// Render switches localizers when the current one can serve the locale;
// otherwise the content renders with the current localizer.
func (n *withLocaleNode) Render(w *strings.Builder, c *Context) error {
	name, err := n.locale.resolveString(c)
	if err != nil {
		return err
	}
	prev := c.localizer
	if sw, ok := c.Localizer().(LocaleSwitcher); ok {
		l, err := sw.ForLocale(name)
		if err != nil {
			return c.renderError(err)
		}
		c.localizer = l
	}
	c.Push()
	defer func() {
		c.Pop()
		c.localizer = prev
	}()
	return n.nodes.Render(w, c)
}
