package template

import (
	"strings"
)

const maxIncludeDepth = 32

type includeNode struct {
	pos
	name  *FilterExpression
	names []string
	exprs []*FilterExpression
	only  bool
}

// parseInclude handles `include "name"` and `include expr`, optionally
// followed by `with a=x b=y` and `only`.
func parseInclude(p *Parser, tag Tag) (Node, error) {
	args := tag.Args
	if len(args) == 0 {
		return nil, p.syntaxError("include takes the template name")
	}
	name, err := p.compileFilter(args[0])
	if err != nil {
		return nil, err
	}
	n := &includeNode{pos: pos(tag.Line), name: name}
	rest := args[1:]
	if len(rest) > 0 && rest[len(rest)-1] == "only" {
		n.only = true
		rest = rest[:len(rest)-1]
	}
	if len(rest) > 0 {
		if rest[0] != "with" || len(rest) == 1 {
			return nil, p.syntaxError("include expects `with name=value` after the template name")
		}
		for _, a := range rest[1:] {
			key, raw, ok := strings.Cut(a, "=")
			if !ok || key == "" || raw == "" {
				return nil, p.syntaxError("include expects name=value pairs, got %q", a)
			}
			fe, err := p.compileFilter(raw)
			if err != nil {
				return nil, err
			}
			n.names = append(n.names, key)
			n.exprs = append(n.exprs, fe)
		}
	}
	return n, nil
}

func (n *includeNode) Render(w *strings.Builder, c *Context) error {
	v, err := n.name.Resolve(c)
	if err != nil {
		return err
	}
	t, ok := v.(*Template)
	if !ok {
		name := toString(v)
		if name == "" {
			return c.renderErrorf("include: empty template name from %q", n.name)
		}
		if t, err = c.engine.GetTemplate(name); err != nil {
			return err
		}
	}
	if c.depth >= maxIncludeDepth {
		return c.renderErrorf("include: nesting deeper than %d at %q", maxIncludeDepth, t.name)
	}

	values := make([]any, len(n.exprs))
	for i, fe := range n.exprs {
		if values[i], err = fe.Resolve(c); err != nil {
			return err
		}
	}

	scopes := c.scopes
	root := c.root
	if n.only {
		c.scopes, c.root = []map[string]any{{}}, nil
	}
	c.Push()
	for i, name := range n.names {
		c.Set(name, values[i])
	}
	blocks := c.blocks
	c.blocks = nil
	c.depth++
	defer func() {
		c.depth--
		c.blocks = blocks
		c.scopes, c.root = scopes, root
	}()
	return t.render(w, c)
}

// blockContext stacks block overrides collected while walking an extends
// chain, most derived last.
type blockContext struct {
	blocks map[string][]*blockNode
}

// addBlocks puts blocks below the ones already collected; parents are
// added after their children.
func (bc *blockContext) addBlocks(blocks map[string]*blockNode) {
	for name, b := range blocks {
		bc.blocks[name] = append([]*blockNode{b}, bc.blocks[name]...)
	}
}

func (bc *blockContext) pop(name string) *blockNode {
	list := bc.blocks[name]
	if len(list) == 0 {
		return nil
	}
	b := list[len(list)-1]
	bc.blocks[name] = list[:len(list)-1]
	return b
}

func (bc *blockContext) push(name string, b *blockNode) {
	bc.blocks[name] = append(bc.blocks[name], b)
}

func (bc *blockContext) has(name string) bool {
	return len(bc.blocks[name]) > 0
}

type blockNode struct {
	pos
	name  string
	nodes NodeList
}

func parseBlock(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 1 {
		return nil, p.syntaxError("block takes one argument, the block name")
	}
	name := tag.Args[0]
	if _, dup := p.blocks[name]; dup {
		return nil, p.syntaxError("block %q appears more than once", name)
	}
	n := &blockNode{pos: pos(tag.Line), name: name}
	p.blocks[name] = n
	nodes, end, err := p.Parse("endblock")
	if err != nil {
		return nil, err
	}
	if len(end.Args) > 0 && end.Args[0] != name {
		return nil, p.syntaxError("endblock %q does not close block %q", end.Args[0], name)
	}
	n.nodes = nodes
	return n, nil
}

func (n *blockNode) Render(w *strings.Builder, c *Context) error {
	c.Push()
	defer c.Pop()
	if c.blocks == nil {
		c.Set("block", &BlockProxy{node: n, ctx: c})
		return n.nodes.Render(w, c)
	}
	pushed := c.blocks.pop(n.name)
	b := pushed
	if b == nil {
		b = n
	}
	c.Set("block", &BlockProxy{node: b, ctx: c})
	err := b.nodes.Render(w, c)
	if pushed != nil {
		c.blocks.push(n.name, pushed)
	}
	return err
}

// BlockProxy is bound to `block` inside a block; {{ block.super }} renders
// the overridden parent content.
type BlockProxy struct {
	node *blockNode
	ctx  *Context
}

func (b *BlockProxy) Name() string { return b.node.name }

// Super renders the next block of the same name up the extends chain.
func (b *BlockProxy) Super() (SafeString, error) {
	c := b.ctx
	if c.blocks == nil || !c.blocks.has(b.node.name) {
		return "", nil
	}
	var out strings.Builder
	if err := b.node.Render(&out, c); err != nil {
		return "", err
	}
	return SafeString(out.String()), nil
}

type extendsNode struct {
	pos
	parent *FilterExpression
	nodes  NodeList
	blocks map[string]*blockNode
}

// parseExtends consumes the rest of the template; only block content of an
// extending template reaches the output.
func parseExtends(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 1 {
		return nil, p.syntaxError("extends takes one argument")
	}
	if p.nesting > 0 {
		return nil, p.syntaxError("extends must be at the top level of the template")
	}
	if p.extends != nil {
		return nil, p.syntaxError("extends appears more than once")
	}
	parent, err := p.compileFilter(tag.Args[0])
	if err != nil {
		return nil, err
	}
	n := &extendsNode{pos: pos(tag.Line), parent: parent}
	p.extends = n
	if n.nodes, _, err = p.Parse(); err != nil {
		return nil, err
	}
	n.blocks = p.blocks
	return n, nil
}

// checkExtendsFirst rejects templates with tags or variables before
// extends.
func checkExtendsFirst(p *Parser, nodes NodeList) error {
	if p.extends == nil {
		return nil
	}
	for _, n := range nodes {
		switch n.(type) {
		case *textNode:
			continue
		case *extendsNode:
			return nil
		}
		p.line = p.extends.line()
		return p.syntaxError("extends must be the first tag in the template")
	}
	return nil
}

func (n *extendsNode) parentTemplate(c *Context) (*Template, error) {
	v, err := n.parent.Resolve(c)
	if err != nil {
		return nil, err
	}
	if t, ok := v.(*Template); ok {
		return t, nil
	}
	name := toString(v)
	if name == "" {
		return nil, c.renderErrorf("extends: empty parent name from %q", n.parent)
	}
	if name == c.template {
		return nil, c.renderErrorf("extends: template %q extends itself", name)
	}
	return c.engine.GetTemplate(name)
}

func (n *extendsNode) Render(w *strings.Builder, c *Context) error {
	parent, err := n.parentTemplate(c)
	if err != nil {
		return err
	}
	if c.blocks == nil {
		c.blocks = &blockContext{blocks: map[string][]*blockNode{}}
		defer func() { c.blocks = nil }()
	}
	c.blocks.addBlocks(n.blocks)
	if !extendsOther(parent) {
		c.blocks.addBlocks(parent.blocks)
	}
	if c.depth >= maxIncludeDepth {
		return c.renderErrorf("extends: chain deeper than %d at %q", maxIncludeDepth, parent.name)
	}
	c.depth++
	defer func() { c.depth-- }()
	c.Push()
	defer c.Pop()
	return parent.render(w, c)
}

func extendsOther(t *Template) bool {
	for _, n := range t.nodes {
		switch n.(type) {
		case *textNode:
			continue
		case *extendsNode:
			return true
		}
		return false
	}
	return false
}
