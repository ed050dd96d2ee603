package template

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Template is a compiled template. It is immutable and safe to render from
// several goroutines.
type Template struct {
	name   string
	engine *Engine
	nodes  NodeList
	blocks map[string]*blockNode
}

// Name returns the name the template was loaded or compiled under.
func (t *Template) Name() string { return t.name }

// Render renders the template against data. See NewContext for the
// accepted data shapes.
func (t *Template) Render(data any) (string, error) {
	return t.RenderContext(NewContext(data))
}

// Execute renders the template against data and writes the output to w.
func (t *Template) Execute(w io.Writer, data any) error {
	out, err := t.Render(data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return errors.Wrapf(err, "template %s: write", t.name)
}

// RenderContext renders the template against a prepared context.
func (t *Template) RenderContext(c *Context) (string, error) {
	var b strings.Builder
	if err := t.render(&b, c); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (t *Template) render(w *strings.Builder, c *Context) error {
	if c.engine == nil {
		c.engine = t.engine
	}
	if c.state == nil {
		c.state = map[any]any{}
	}
	prevName, prevLine := c.template, c.line
	c.template = t.name
	defer func() { c.template, c.line = prevName, prevLine }()
	return t.nodes.Render(w, c)
}
