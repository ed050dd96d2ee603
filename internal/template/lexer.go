package template

import "strings"

type tokenKind int

const (
	textToken tokenKind = iota
	variableToken
	blockToken
	commentToken
)

const (
	blockStart    = "{%"
	blockEnd      = "%}"
	variableStart = "{{"
	variableEnd   = "}}"
	commentStart  = "{#"
	commentEnd    = "#}"
)

type token struct {
	kind    tokenKind
	content string
	line    int
}

// command returns the first word of a block token.
func (t token) command() string {
	if i := strings.IndexAny(t.content, " \t\r\n"); i >= 0 {
		return t.content[:i]
	}
	return t.content
}

// tokenize splits src into text, variable, block and comment tokens. A tag
// opener without a matching closer on the rest of the input is kept as text.
func tokenize(src string) []token {
	var tokens []token
	line := 1
	emitText := func(s string) {
		if s == "" {
			return
		}
		tokens = append(tokens, token{kind: textToken, content: s, line: line})
		line += strings.Count(s, "\n")
	}

	for len(src) > 0 {
		start := strings.IndexByte(src, '{')
		if start < 0 || start+1 >= len(src) {
			emitText(src)
			break
		}
		var kind tokenKind
		var closer string
		switch src[start : start+2] {
		case blockStart:
			kind, closer = blockToken, blockEnd
		case variableStart:
			kind, closer = variableToken, variableEnd
		case commentStart:
			kind, closer = commentToken, commentEnd
		default:
			emitText(src[:start+1])
			src = src[start+1:]
			continue
		}
		end := strings.Index(src[start+2:], closer)
		if end < 0 {
			emitText(src)
			break
		}
		emitText(src[:start])
		raw := src[start+2 : start+2+end]
		tokens = append(tokens, token{kind: kind, content: strings.TrimSpace(raw), line: line})
		line += strings.Count(raw, "\n")
		src = src[start+2+end+2:]
	}
	return mergeText(tokens)
}

// mergeText joins adjacent text tokens produced by lone braces.
func mergeText(tokens []token) []token {
	out := tokens[:0]
	for _, t := range tokens {
		if n := len(out); n > 0 && t.kind == textToken && out[n-1].kind == textToken {
			out[n-1].content += t.content
			continue
		}
		out = append(out, t)
	}
	return out
}

// smartSplit splits s on whitespace, keeping quoted strings (and any
// text glued to them, such as a filter argument) in one piece.
func smartSplit(s string) []string {
	var parts []string
	var cur strings.Builder
	var quote byte
	inWord := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inWord = true
			cur.WriteByte(ch)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			if inWord {
				parts = append(parts, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			inWord = true
			cur.WriteByte(ch)
		}
	}
	if inWord {
		parts = append(parts, cur.String())
	}
	return parts
}
