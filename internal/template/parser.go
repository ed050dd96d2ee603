package template

import (
	"fmt"
	"slices"
	"strings"
)

// Tag is a {% %} block handed to a TagFunc.
type Tag struct {
	Name    string
	Args    []string
	Content string
	Line    int
}

// TagFunc compiles one tag. It may consume following tokens through the
// parser, for example to read up to a closing tag.
type TagFunc func(p *Parser, tag Tag) (Node, error)

// Parser turns tokens into nodes. Tag functions receive it to parse nested
// content.
type Parser struct {
	engine  *Engine
	name    string
	tokens  []token
	pos     int
	line    int
	nesting int

	blocks      map[string]*blockNode
	namedCycles map[string]*cycleNode
	extends     *extendsNode
}

func newParser(e *Engine, name, src string) *Parser {
	return &Parser{
		engine:      e,
		name:        name,
		tokens:      tokenize(src),
		blocks:      map[string]*blockNode{},
		namedCycles: map[string]*cycleNode{},
	}
}

// Parse compiles tokens until one of the until tags, which is consumed and
// returned. With no until tags it parses to the end of input.
func (p *Parser) Parse(until ...string) (NodeList, Tag, error) {
	if len(until) > 0 {
		p.nesting++
		defer func() { p.nesting-- }()
	}
	var nodes NodeList
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		p.pos++
		p.line = t.line
		switch t.kind {
		case textToken:
			nodes = append(nodes, &textNode{text: t.content})
		case commentToken:
		case variableToken:
			if t.content == "" {
				return nil, Tag{}, p.syntaxError("empty variable tag")
			}
			fe, err := p.compileFilter(t.content)
			if err != nil {
				return nil, Tag{}, err
			}
			nodes = append(nodes, &variableNode{pos: pos(t.line), expr: fe})
		case blockToken:
			tag := p.tagOf(t)
			if tag.Name == "" {
				return nil, Tag{}, p.syntaxError("empty block tag")
			}
			if slices.Contains(until, tag.Name) {
				return nodes, tag, nil
			}
			fn, ok := p.engine.tag(tag.Name)
			if !ok {
				if len(until) > 0 {
					return nil, Tag{}, p.errorf(UnknownTag, "invalid block tag %q, expected %s", tag.Name, strings.Join(until, " or "))
				}
				return nil, Tag{}, p.errorf(UnknownTag, "invalid block tag %q", tag.Name)
			}
			n, err := fn(p, tag)
			if err != nil {
				return nil, Tag{}, err
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		}
	}
	if len(until) > 0 {
		return nil, Tag{}, p.syntaxError("unclosed tag, expected %s", strings.Join(until, " or "))
	}
	return nodes, Tag{}, nil
}

func (p *Parser) tagOf(t token) Tag {
	parts := smartSplit(t.content)
	tag := Tag{Content: t.content, Line: t.line}
	if len(parts) > 0 {
		tag.Name = parts[0]
		tag.Args = parts[1:]
	}
	return tag
}

// SkipPast discards tokens up to and including the block tag named end.
func (p *Parser) SkipPast(end string) error {
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		p.pos++
		if t.kind == blockToken && t.command() == end {
			return nil
		}
	}
	return p.syntaxError("unclosed tag, expected %s", end)
}

// CompileFilter compiles a filter expression against the engine's filters.
func (p *Parser) CompileFilter(raw string) (*FilterExpression, error) {
	return p.compileFilter(raw)
}

// TemplateName returns the name of the template being compiled.
func (p *Parser) TemplateName() string { return p.name }

func (p *Parser) errorf(kind ErrorKind, format string, args ...any) error {
	return &TemplateError{Kind: kind, Template: p.name, Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) syntaxError(format string, args ...any) error {
	return p.errorf(TagSyntaxError, format, args...)
}

// SyntaxError reports a malformed tag at the current position.
func (p *Parser) SyntaxError(format string, args ...any) error {
	return p.syntaxError(format, args...)
}
