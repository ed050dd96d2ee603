package template

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

func defaultTags() map[string]TagFunc {
	return map[string]TagFunc{
		"if":          parseIf,
		"for":         parseFor,
		"with":        parseWith,
		"include":     parseInclude,
		"extends":     parseExtends,
		"block":       parseBlock,
		"comment":     parseComment,
		"autoescape":  parseAutoescape,
		"regroup":     parseRegroup,
		"ifequal":     parseIfEqual(false),
		"ifnotequal":  parseIfEqual(true),
		"cycle":       parseCycle,
		"firstof":     parseFirstOf,
		"spaceless":   parseSpaceless,
		"templatetag": parseTemplateTag,
		"now":         parseNow,
		"i18n":        parseI18n(false, false),
		"i18n_var":    parseI18n(false, true),
		"i18nc":       parseI18n(true, false),
		"i18nc_var":   parseI18n(true, true),
		"i18np":       parseI18np(false, false),
		"i18np_var":   parseI18np(false, true),
		"i18ncp":      parseI18np(true, false),
		"i18ncp_var":  parseI18np(true, true),
		"with_locale": parseWithLocale,
		"ifchanged":   parseIfChanged,
		"range":       parseRange,
		"widthratio":  parseWidthRatio,
		"filter":      parseFilter,
	}
}

func parseComment(p *Parser, _ Tag) (Node, error) {
	return nil, p.SkipPast("endcomment")
}

type autoescapeNode struct {
	on    bool
	nodes NodeList
}

func parseAutoescape(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 1 || (tag.Args[0] != "on" && tag.Args[0] != "off") {
		return nil, p.syntaxError("autoescape takes one argument, on or off")
	}
	nodes, _, err := p.Parse("endautoescape")
	if err != nil {
		return nil, err
	}
	return &autoescapeNode{on: tag.Args[0] == "on", nodes: nodes}, nil
}

func (n *autoescapeNode) Render(w *strings.Builder, c *Context) error {
	prev := c.autoescape
	c.SetAutoescape(n.on)
	defer func() { c.autoescape = prev }()
	return n.nodes.Render(w, c)
}

var templateTagOutput = map[string]string{
	"openblock":     blockStart,
	"closeblock":    blockEnd,
	"openvariable":  variableStart,
	"closevariable": variableEnd,
	"openbrace":     "{",
	"closebrace":    "}",
	"opencomment":   commentStart,
	"closecomment":  commentEnd,
}

func parseTemplateTag(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 1 {
		return nil, p.syntaxError("templatetag takes one argument")
	}
	out, ok := templateTagOutput[tag.Args[0]]
	if !ok {
		return nil, p.syntaxError("unknown templatetag argument %q", tag.Args[0])
	}
	return &textNode{text: out}, nil
}

var betweenTags = regexp.MustCompile(`>\s+<`)

type spacelessNode struct {
	nodes NodeList
}

func parseSpaceless(p *Parser, _ Tag) (Node, error) {
	nodes, _, err := p.Parse("endspaceless")
	if err != nil {
		return nil, err
	}
	return &spacelessNode{nodes: nodes}, nil
}

func (n *spacelessNode) Render(w *strings.Builder, c *Context) error {
	out, err := n.nodes.renderString(c)
	if err != nil {
		return err
	}
	w.WriteString(betweenTags.ReplaceAllString(strings.TrimSpace(out), "><"))
	return nil
}

type firstOfNode struct {
	pos
	exprs []*FilterExpression
}

func parseFirstOf(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) == 0 {
		return nil, p.syntaxError("firstof takes at least one argument")
	}
	n := &firstOfNode{pos: pos(tag.Line)}
	for _, a := range tag.Args {
		fe, err := p.compileFilter(a)
		if err != nil {
			return nil, err
		}
		n.exprs = append(n.exprs, fe)
	}
	return n, nil
}

func (n *firstOfNode) Render(w *strings.Builder, c *Context) error {
	for _, fe := range n.exprs {
		v, err := fe.Resolve(c)
		if err != nil {
			return err
		}
		if truthy(v) {
			writeValue(w, v, c)
			return nil
		}
	}
	return nil
}

type cycleNode struct {
	pos
	values []*FilterExpression
	name   string
}

// parseCycle handles `cycle a b c`, `cycle a b c as name` and a reference
// `cycle name` to a named cycle declared earlier in the template.
func parseCycle(p *Parser, tag Tag) (Node, error) {
	args := tag.Args
	if len(args) == 0 {
		return nil, p.syntaxError("cycle takes at least one argument")
	}
	if len(args) == 1 {
		named, ok := p.namedCycles[args[0]]
		if !ok {
			return nil, p.syntaxError("no named cycle %q", args[0])
		}
		return named, nil
	}
	n := &cycleNode{pos: pos(tag.Line)}
	if len(args) > 2 && args[len(args)-2] == "as" {
		n.name = args[len(args)-1]
		args = args[:len(args)-2]
	}
	for _, a := range args {
		fe, err := p.compileFilter(a)
		if err != nil {
			return nil, err
		}
		n.values = append(n.values, fe)
	}
	if n.name != "" {
		p.namedCycles[n.name] = n
	}
	return n, nil
}

func (n *cycleNode) Render(w *strings.Builder, c *Context) error {
	i, _ := c.state[n].(int)
	c.state[n] = i + 1
	v, err := n.values[i%len(n.values)].Resolve(c)
	if err != nil {
		return err
	}
	if n.name != "" {
		c.Set(n.name, v)
	}
	writeValue(w, v, c)
	return nil
}

type withNode struct {
	names []string
	exprs []*FilterExpression
	nodes NodeList
}

// parseWith handles `with value as name` and `with a=x b=y`.
func parseWith(p *Parser, tag Tag) (Node, error) {
	n := &withNode{}
	args := tag.Args
	if len(args) == 3 && args[1] == "as" {
		fe, err := p.compileFilter(args[0])
		if err != nil {
			return nil, err
		}
		n.names, n.exprs = []string{args[2]}, []*FilterExpression{fe}
	} else {
		if len(args) == 0 {
			return nil, p.syntaxError("with expects `value as name` or name=value pairs")
		}
		for _, a := range args {
			name, raw, ok := strings.Cut(a, "=")
			if !ok || name == "" || raw == "" {
				return nil, p.syntaxError("with expects `value as name` or name=value pairs, got %q", a)
			}
			fe, err := p.compileFilter(raw)
			if err != nil {
				return nil, err
			}
			n.names = append(n.names, name)
			n.exprs = append(n.exprs, fe)
		}
	}
	nodes, _, err := p.Parse("endwith")
	if err != nil {
		return nil, err
	}
	n.nodes = nodes
	return n, nil
}

func (n *withNode) Render(w *strings.Builder, c *Context) error {
	values := make([]any, len(n.exprs))
	for i, fe := range n.exprs {
		v, err := fe.Resolve(c)
		if err != nil {
			return err
		}
		values[i] = v
	}
	c.Push()
	defer c.Pop()
	for i, name := range n.names {
		c.Set(name, values[i])
	}
	return n.nodes.Render(w, c)
}

type ifEqualNode struct {
	negate          bool
	a, b            *FilterExpression
	then, otherwise NodeList
}

func parseIfEqual(negate bool) TagFunc {
	return func(p *Parser, tag Tag) (Node, error) {
		if len(tag.Args) != 2 {
			return nil, p.syntaxError("%s takes two arguments", tag.Name)
		}
		a, err := p.compileFilter(tag.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := p.compileFilter(tag.Args[1])
		if err != nil {
			return nil, err
		}
		end := "end" + tag.Name
		n := &ifEqualNode{negate: negate, a: a, b: b}
		var stop Tag
		if n.then, stop, err = p.Parse("else", end); err != nil {
			return nil, err
		}
		if stop.Name == "else" {
			if n.otherwise, _, err = p.Parse(end); err != nil {
				return nil, err
			}
		}
		return n, nil
	}
}

func (n *ifEqualNode) Render(w *strings.Builder, c *Context) error {
	a, err := n.a.Resolve(c)
	if err != nil {
		return err
	}
	b, err := n.b.Resolve(c)
	if err != nil {
		return err
	}
	if equalValues(a, b) != n.negate {
		return n.then.Render(w, c)
	}
	return n.otherwise.Render(w, c)
}

type regroupNode struct {
	pos
	list *FilterExpression
	by   []string
	as   string
}

// parseRegroup handles `regroup list by attr as name`. Consecutive items
// with equal attr values form one group of {grouper, list}.
func parseRegroup(p *Parser, tag Tag) (Node, error) {
	args := tag.Args
	if len(args) != 5 || args[1] != "by" || args[3] != "as" {
		return nil, p.syntaxError("regroup expects `regroup list by attr as name`")
	}
	list, err := p.compileFilter(args[0])
	if err != nil {
		return nil, err
	}
	return &regroupNode{pos: pos(tag.Line), list: list, by: strings.Split(args[2], "."), as: args[4]}, nil
}

func (n *regroupNode) Render(_ *strings.Builder, c *Context) error {
	v, err := n.list.Resolve(c)
	if err != nil {
		return err
	}
	var groups []any
	var current map[string]any
	for _, item := range iterate(v) {
		key := item
		for _, part := range n.by {
			if key, _, err = resolveAttr(key, part); err != nil {
				return c.renderError(err)
			}
		}
		if current == nil || !equalValues(current["grouper"], key) {
			current = map[string]any{"grouper": key, "list": []any{}}
			groups = append(groups, current)
		}
		current["list"] = append(current["list"].([]any), item)
	}
	c.Set(n.as, groups)
	return nil
}

type ifChangedNode struct {
	exprs           []*FilterExpression
	then, otherwise NodeList
}

type ifChangedState struct {
	seen bool
	last any
}

// parseIfChanged handles `ifchanged` with an optional list of values to
// watch. Without values the rendered body is compared instead.
func parseIfChanged(p *Parser, tag Tag) (Node, error) {
	n := &ifChangedNode{}
	for _, a := range tag.Args {
		fe, err := p.compileFilter(a)
		if err != nil {
			return nil, err
		}
		n.exprs = append(n.exprs, fe)
	}
	var stop Tag
	var err error
	if n.then, stop, err = p.Parse("else", "endifchanged"); err != nil {
		return nil, err
	}
	if stop.Name == "else" {
		if n.otherwise, _, err = p.Parse("endifchanged"); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *ifChangedNode) Render(w *strings.Builder, c *Context) error {
	st, _ := c.state[n].(*ifChangedState)
	if st == nil || loopRestarted(c) {
		st = &ifChangedState{}
		c.state[n] = st
	}
	c.Push()
	defer c.Pop()
	c.Set("ifchanged", map[string]any{"firstloop": !st.seen})

	var current any
	var body string
	if len(n.exprs) == 0 {
		out, err := n.then.renderString(c)
		if err != nil {
			return err
		}
		current, body = out, out
	} else {
		values := make([]any, len(n.exprs))
		for i, fe := range n.exprs {
			v, err := fe.Resolve(c)
			if err != nil {
				return err
			}
			values[i] = v
		}
		current = values
	}
	if st.seen && sameValues(st.last, current) {
		return n.otherwise.Render(w, c)
	}
	st.seen, st.last = true, current
	if len(n.exprs) == 0 {
		w.WriteString(body)
		return nil
	}
	return n.then.Render(w, c)
}

// loopRestarted reports whether the enclosing for loop is on its first
// iteration, which starts a fresh ifchanged comparison.
func loopRestarted(c *Context) bool {
	v, ok := c.Lookup("forloop")
	if !ok {
		return false
	}
	loop, ok := v.(map[string]any)
	return ok && loop["counter0"] == 0
}

func sameValues(a, b any) bool {
	x, okA := a.([]any)
	y, okB := b.([]any)
	if !okA || !okB {
		return equalValues(a, b)
	}
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !equalValues(x[i], y[i]) {
			return false
		}
	}
	return true
}

type rangeNode struct {
	pos
	start, stop, step *FilterExpression
	name              string
	body              NodeList
}

// parseRange handles `range stop`, `range start stop` and
// `range start stop step`, each optionally followed by `as name`.
func parseRange(p *Parser, tag Tag) (Node, error) {
	args := tag.Args
	n := &rangeNode{pos: pos(tag.Line)}
	if len(args) > 2 && args[len(args)-2] == "as" {
		n.name = args[len(args)-1]
		args = args[:len(args)-2]
	}
	if len(args) == 0 || len(args) > 3 {
		return nil, p.syntaxError("range expects `range [start] stop [step] [as name]`")
	}
	exprs := make([]*FilterExpression, len(args))
	for i, a := range args {
		fe, err := p.compileFilter(a)
		if err != nil {
			return nil, err
		}
		exprs[i] = fe
	}
	switch len(exprs) {
	case 1:
		n.stop = exprs[0]
	case 2:
		n.start, n.stop = exprs[0], exprs[1]
	case 3:
		n.start, n.stop, n.step = exprs[0], exprs[1], exprs[2]
	}
	body, _, err := p.Parse("endrange")
	if err != nil {
		return nil, err
	}
	n.body = body
	return n, nil
}

func (n *rangeNode) bound(fe *FilterExpression, c *Context, def int) (int, error) {
	if fe == nil {
		return def, nil
	}
	v, err := fe.Resolve(c)
	if err != nil {
		return 0, err
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, c.renderErrorf("range bound %s is not a number", fe)
	}
	return i, nil
}

func (n *rangeNode) Render(w *strings.Builder, c *Context) error {
	start, err := n.bound(n.start, c, 0)
	if err != nil {
		return err
	}
	stop, err := n.bound(n.stop, c, 0)
	if err != nil {
		return err
	}
	step, err := n.bound(n.step, c, 1)
	if err != nil {
		return err
	}
	if step == 0 {
		return c.renderErrorf("range step must not be zero")
	}
	c.Push()
	defer c.Pop()
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if n.name != "" {
			c.Set(n.name, i)
		}
		if err := n.body.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

type widthRatioNode struct {
	value, max, width *FilterExpression
}

// parseWidthRatio handles `widthratio value max width`, which writes
// value/max*width rounded to the nearest integer.
func parseWidthRatio(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 3 {
		return nil, p.syntaxError("widthratio takes three arguments")
	}
	exprs := make([]*FilterExpression, 3)
	for i, a := range tag.Args {
		fe, err := p.compileFilter(a)
		if err != nil {
			return nil, err
		}
		exprs[i] = fe
	}
	return &widthRatioNode{value: exprs[0], max: exprs[1], width: exprs[2]}, nil
}

func (n *widthRatioNode) Render(w *strings.Builder, c *Context) error {
	var nums [3]float64
	for i, fe := range []*FilterExpression{n.value, n.max, n.width} {
		v, err := fe.Resolve(c)
		if err != nil {
			return err
		}
		f, err := cast.ToFloat64E(v)
		if v == nil || err != nil {
			return nil
		}
		nums[i] = f
	}
	if nums[1] == 0 {
		return nil
	}
	w.WriteString(strconv.Itoa(int(math.Floor(nums[0]/nums[1]*nums[2] + 0.5))))
	return nil
}

type filterNode struct {
	expr  *FilterExpression
	nodes NodeList
}

// parseFilter handles `filter lower|cut:" "`, which runs the rendered body
// through the filter chain.
func parseFilter(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) == 0 {
		return nil, p.syntaxError("filter takes a filter chain")
	}
	expr, err := p.compileFilter("var|" + strings.Join(tag.Args, " "))
	if err != nil {
		return nil, err
	}
	for _, f := range expr.filters {
		if f.name == "safe" || f.name == "escape" {
			return nil, p.syntaxError("filter cannot apply %q. Use the autoescape tag instead", f.name)
		}
	}
	nodes, _, err := p.Parse("endfilter")
	if err != nil {
		return nil, err
	}
	return &filterNode{expr: expr, nodes: nodes}, nil
}

func (n *filterNode) Render(w *strings.Builder, c *Context) error {
	out, err := n.nodes.renderString(c)
	if err != nil {
		return err
	}
	c.Push()
	defer c.Pop()
	c.Set("var", SafeString(out))
	v, err := n.expr.Resolve(c)
	if err != nil {
		return err
	}
	writeValue(w, v, c)
	return nil
}
