package template

import (
	"regexp"
	"strings"
)

// Message is a translatable string found in template source.
type Message struct {
	Source string
	// Plural is set for i18np and i18ncp messages.
	Plural string
	// Comment is the disambiguation of i18nc and i18ncp.
	Comment string
	Numerus bool
	Line    int
}

var localizedLiteral = regexp.MustCompile(`_\(\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*')\s*\)`)

// Extract lists the translatable strings of a template in source order:
// the messages of the i18n tags (i18n, i18nc, i18np, i18ncp and their _var
// forms) and every _("literal") in variables and tag arguments. Template
// syntax errors are ignored; a tag that does not parse yields nothing.
func Extract(src string) []Message {
	var out []Message
	for _, t := range tokenize(src) {
		if t.kind != variableToken && t.kind != blockToken {
			continue
		}
		bits := smartSplit(t.content)
		if t.kind == blockToken {
			if m, rest, ok := extractTag(bits); ok {
				m.Line = t.line
				out = append(out, m)
				bits = rest
			}
		}
		for _, b := range bits {
			for _, lit := range localizedLiterals(b) {
				out = append(out, Message{Source: lit, Line: t.line})
			}
		}
	}
	return out
}

// extractTag reads the static strings of an i18n tag and returns the
// arguments after them.
func extractTag(bits []string) (Message, []string, bool) {
	if len(bits) == 0 {
		return Message{}, nil, false
	}
	name := strings.TrimSuffix(bits[0], "_var")
	var fields []*string
	var m Message
	switch name {
	case "i18n":
		fields = []*string{&m.Source}
	case "i18nc":
		fields = []*string{&m.Comment, &m.Source}
	case "i18np":
		m.Numerus = true
		fields = []*string{&m.Source, &m.Plural}
	case "i18ncp":
		m.Numerus = true
		fields = []*string{&m.Comment, &m.Source, &m.Plural}
	default:
		return Message{}, nil, false
	}
	rest := bits[1:]
	for i, f := range fields {
		if len(rest) == 0 {
			return Message{}, nil, false
		}
		s, ok := unquote(rest[0])
		if !ok {
			// The plural text is optional and defaults to the singular one.
			if m.Numerus && i == len(fields)-1 {
				m.Plural = m.Source
				break
			}
			return Message{}, nil, false
		}
		*f = s
		rest = rest[1:]
	}
	return m, rest, true
}

func localizedLiterals(bit string) []string {
	var out []string
	for _, loc := range localizedLiteral.FindAllStringSubmatchIndex(bit, -1) {
		if start := loc[0]; start > 0 && isIdentByte(bit[start-1]) {
			continue
		}
		if s, ok := unquote(bit[loc[2]:loc[3]]); ok {
			out = append(out, s)
		}
	}
	return out
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
