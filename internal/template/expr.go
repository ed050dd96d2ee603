package template

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// variable is one operand of a filter expression: a literal or a dotted
// lookup, optionally wrapped in _() for localization.
type variable struct {
	raw      string
	literal  any
	lookups  []string
	localize bool
}

func parseVariable(raw string) (*variable, error) {
	v := &variable{raw: raw}
	s := raw
	if strings.HasPrefix(s, "_(") && strings.HasSuffix(s, ")") {
		v.localize = true
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	if s == "" {
		return nil, errors.Errorf("empty variable in %q", raw)
	}
	if lit, ok, err := parseLiteral(s); err != nil {
		return nil, err
	} else if ok {
		v.literal = lit
		return v, nil
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" || strings.HasPrefix(part, "_") {
			return nil, errors.Errorf("invalid variable %q", raw)
		}
		for _, r := range part {
			if !(r == '_' || r == '-' || r == '+' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127) {
				return nil, errors.Errorf("invalid character %q in variable %q", r, raw)
			}
		}
		v.lookups = append(v.lookups, part)
	}
	return v, nil
}

// parseLiteral recognizes quoted strings and numbers. String literals are
// safe, as the template author wrote them.
func parseLiteral(s string) (any, bool, error) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		if s[len(s)-1] != s[0] {
			return nil, false, errors.Errorf("unterminated string %s", s)
		}
		return SafeString(unescapeLiteral(s[1 : len(s)-1])), true, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i), true, nil
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true, nil
		}
	}
	return nil, false, nil
}

func unescapeLiteral(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (v *variable) resolve(c *Context) (any, error) {
	var val any
	if v.lookups == nil {
		val = v.literal
	} else {
		var err error
		val, err = c.lookupPath(v.lookups)
		if err != nil {
			return nil, err
		}
	}
	if v.localize {
		val = localize(c.Localizer(), val)
	}
	return val, nil
}

type filterCall struct {
	name string
	fn   Filter
	arg  *variable
}

// FilterExpression is a variable followed by a chain of filters, as in
// `name|lower|append:".rb"`.
type FilterExpression struct {
	raw     string
	base    *variable
	filters []filterCall
}

func (fe *FilterExpression) String() string { return fe.raw }

// IsLiteralString reports whether the expression is a bare quoted string,
// returning its text.
func (fe *FilterExpression) IsLiteralString() (string, bool) {
	if len(fe.filters) > 0 || fe.base.lookups != nil || fe.base.localize {
		return "", false
	}
	s, ok := fe.base.literal.(SafeString)
	return string(s), ok
}

func (p *Parser) compileFilter(raw string) (*FilterExpression, error) {
	parts, err := splitFilters(raw)
	if err != nil {
		return nil, p.syntaxError("%s", err)
	}
	base, err := parseVariable(parts[0])
	if err != nil {
		return nil, p.syntaxError("%s", err)
	}
	fe := &FilterExpression{raw: raw, base: base}
	for _, part := range parts[1:] {
		name, argRaw, hasArg := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		fn, ok := p.engine.filter(name)
		if !ok {
			return nil, p.errorf(UnknownFilter, "unknown filter %q in %q", name, raw)
		}
		call := filterCall{name: name, fn: fn}
		if hasArg {
			if call.arg, err = parseVariable(strings.TrimSpace(argRaw)); err != nil {
				return nil, p.syntaxError("%s", err)
			}
		}
		fe.filters = append(fe.filters, call)
	}
	return fe, nil
}

// splitFilters cuts raw on the pipes that are outside quotes and _().
func splitFilters(raw string) ([]string, error) {
	var parts []string
	var quote byte
	depth := 0
	last := 0
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == '|' && depth == 0:
			parts = append(parts, strings.TrimSpace(raw[last:i]))
			last = i + 1
		}
	}
	if quote != 0 {
		return nil, errors.Errorf("unterminated string in %q", raw)
	}
	parts = append(parts, strings.TrimSpace(raw[last:]))
	for _, p := range parts {
		if p == "" {
			return nil, errors.Errorf("empty filter in %q", raw)
		}
	}
	return parts, nil
}

// Resolve evaluates the expression in c. Filter errors are returned as
// render errors.
func (fe *FilterExpression) Resolve(c *Context) (any, error) {
	val, err := fe.base.resolve(c)
	if err != nil {
		return nil, c.renderError(err)
	}
	for _, f := range fe.filters {
		var arg any
		if f.arg != nil {
			if arg, err = f.arg.resolve(c); err != nil {
				return nil, c.renderError(err)
			}
		}
		if val, err = f.fn(val, arg, c.Autoescape()); err != nil {
			return nil, c.renderError(errors.Wrapf(err, "filter %s", f.name))
		}
	}
	return val, nil
}

// resolveString resolves fe and converts the result to text.
func (fe *FilterExpression) resolveString(c *Context) (string, error) {
	v, err := fe.Resolve(c)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}
