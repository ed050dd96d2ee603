package catalog

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const indent = "    "

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// Write serializes c in the layout lupdate produces, so that files written
// here diff cleanly against files written by the Qt tools.
func Write(w io.Writer, c *Catalog) error {
	bw := bufio.NewWriter(w)
	version := c.Version
	if version == "" {
		version = DefaultVersion
	}
	bw.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	bw.WriteString("<!DOCTYPE TS>\n")
	bw.WriteString(`<TS version="` + textEscaper.Replace(version) + `"`)
	if c.Language != "" {
		bw.WriteString(` language="` + textEscaper.Replace(c.Language) + `"`)
	}
	if c.SourceLanguage != "" {
		bw.WriteString(` sourcelanguage="` + textEscaper.Replace(c.SourceLanguage) + `"`)
	}
	bw.WriteString(">\n")
	for _, ctx := range c.Contexts {
		bw.WriteString("<context>\n")
		element(bw, 1, "name", ctx.Name)
		for _, m := range ctx.Messages {
			writeMessage(bw, m)
		}
		bw.WriteString("</context>\n")
	}
	bw.WriteString("</TS>\n")
	return errors.Wrap(bw.Flush(), "catalog: write")
}

// Marshal returns the serialized form of c.
func Marshal(c *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMessage(w *bufio.Writer, m *Message) {
	pad := strings.Repeat(indent, 1)
	if m.Numerus {
		w.WriteString(pad + "<message numerus=\"yes\">\n")
	} else {
		w.WriteString(pad + "<message>\n")
	}
	for _, loc := range m.Locations {
		w.WriteString(pad + indent + `<location filename="` + textEscaper.Replace(loc.Filename) + `"`)
		if loc.Line > 0 {
			w.WriteString(` line="` + strconv.Itoa(loc.Line) + `"`)
		}
		w.WriteString("/>\n")
	}
	element(w, 2, "source", m.Source)
	optional(w, 2, "oldsource", m.OldSource)
	optional(w, 2, "comment", m.Comment)
	optional(w, 2, "extracomment", m.ExtraComment)
	optional(w, 2, "translatorcomment", m.TranslatorComment)

	open := pad + indent + "<translation"
	if t := m.Status.attr(); t != "" {
		open += ` type="` + t + `"`
	}
	open += ">"
	if m.Numerus {
		w.WriteString(open + "\n")
		forms := m.Translations
		if len(forms) == 0 {
			forms = []string{""}
		}
		for _, f := range forms {
			element(w, 3, "numerusform", f)
		}
		w.WriteString(pad + indent + "</translation>\n")
	} else {
		w.WriteString(open + textEscaper.Replace(m.Translation()) + "</translation>\n")
	}
	w.WriteString(pad + "</message>\n")
}

func element(w *bufio.Writer, depth int, name, text string) {
	w.WriteString(strings.Repeat(indent, depth) + "<" + name + ">" + textEscaper.Replace(text) + "</" + name + ">\n")
}

func optional(w *bufio.Writer, depth int, name, text string) {
	if text != "" {
		element(w, depth, name, text)
	}
}
