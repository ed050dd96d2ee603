package template

import (
	"time"

	"github.com/pkg/errors"
)

// Context is the variable scope stack a template renders against, plus the
// per-render state of the tags.
type Context struct {
	root       any
	scopes     []map[string]any
	localizer  Localizer
	autoescape *bool
	engine     *Engine
	template   string
	line       int

	blocks *blockContext
	state  map[any]any
	depth  int
}

// NewContext returns a context whose outermost scope is data. data may be a
// map[string]any, any other map with string keys, or a struct.
func NewContext(data any) *Context {
	c := &Context{state: map[any]any{}}
	switch d := data.(type) {
	case nil:
		c.scopes = []map[string]any{{}}
	case map[string]any:
		c.scopes = []map[string]any{d, {}}
	default:
		c.root = d
		c.scopes = []map[string]any{{}}
	}
	return c
}

// SetLocalizer overrides the engine localizer for this context.
func (c *Context) SetLocalizer(l Localizer) { c.localizer = l }

// SetAutoescape overrides the engine autoescape setting for this context.
func (c *Context) SetAutoescape(on bool) { c.autoescape = &on }

// Localizer returns the localizer in effect.
func (c *Context) Localizer() Localizer {
	switch {
	case c.localizer != nil:
		return c.localizer
	case c.engine != nil && c.engine.localizer != nil:
		return c.engine.localizer
	}
	return NullLocalizer{}
}

// Autoescape reports whether variable output is HTML-escaped.
func (c *Context) Autoescape() bool {
	switch {
	case c.autoescape != nil:
		return *c.autoescape
	case c.engine != nil:
		return c.engine.autoescape
	}
	return true
}

// Now returns the engine clock.
func (c *Context) Now() time.Time {
	if c.engine != nil && c.engine.now != nil {
		return c.engine.now()
	}
	return time.Now()
}

// Push opens a new innermost scope.
func (c *Context) Push() { c.scopes = append(c.scopes, map[string]any{}) }

// Pop discards the innermost scope.
func (c *Context) Pop() {
	if len(c.scopes) > 1 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
}

// Set binds name in the innermost scope.
func (c *Context) Set(name string, v any) { c.scopes[len(c.scopes)-1][name] = v }

// Lookup finds name, innermost scope first, then on the root value.
func (c *Context) Lookup(name string) (any, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	if c.root != nil {
		if v, ok, err := resolveAttr(c.root, name); ok && err == nil {
			return v, true
		}
	}
	return nil, false
}

// lookupPath resolves a dotted variable. Missing parts resolve to nil;
// only errors returned by called methods are reported.
func (c *Context) lookupPath(parts []string) (any, error) {
	v, ok := c.Lookup(parts[0])
	if !ok {
		return nil, nil
	}
	for _, part := range parts[1:] {
		next, ok, err := resolveAttr(v, part)
		if err != nil {
			return nil, errors.Wrap(err, part)
		}
		if !ok {
			return nil, nil
		}
		v = next
	}
	return v, nil
}

func (c *Context) renderError(err error) error {
	if _, ok := err.(*TemplateError); ok {
		return err
	}
	return &TemplateError{Kind: RenderError, Template: c.template, Line: c.line, Msg: err.Error(), Err: err}
}

func (c *Context) renderErrorf(format string, args ...any) error {
	return c.renderError(errors.Errorf(format, args...))
}

// at records the position of the node being rendered for error messages.
func (c *Context) at(line int) { c.line = line }
