package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/ports"
)

// Parser reads spreadsheets with one message per row. Only a source
// column is required; see the csv exporter for the full header.
type Parser struct {
	format string
	comma  rune
}

func New() *Parser { return &Parser{format: "csv", comma: ','} }

// NewTSV reads tab separated files.
func NewTSV() *Parser { return &Parser{format: "tsv", comma: '\t'} }

func (p *Parser) Format() string { return p.format }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	data = stripBOM(data)
	r := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	r.Comma = p.comma
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return ports.ParseResult{}, errors.Wrap(err, "csv: read header")
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	srcIdx := -1
	for _, name := range []string{"source", "value", "text", "default", "key"} {
		if i, ok := idx[name]; ok {
			srcIdx = i
			break
		}
	}
	if srcIdx == -1 {
		return ports.ParseResult{}, errors.New("csv: missing source column (source/value/text/default/key)")
	}
	forms := formColumns(idx)
	language := ""
	c := catalog.New("")
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ports.ParseResult{}, errors.Wrap(err, "csv")
		}
		col := func(name string) string {
			if i, ok := idx[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		if srcIdx >= len(rec) || rec[srcIdx] == "" {
			continue
		}
		if language == "" {
			language = col("language")
		}
		m := &catalog.Message{
			Source:    rec[srcIdx],
			Comment:   col("comment"),
			OldSource: col("old_source"),
			Numerus:   isYes(col("numerus")),
		}
		for _, i := range forms {
			if i < len(rec) {
				m.Translations = append(m.Translations, rec[i])
			}
		}
		if !m.Numerus && len(m.Translations) > 1 {
			m.Translations = m.Translations[:1]
		}
		if len(m.Translations) == 0 {
			m.Translations = []string{""}
		}
		m.Status = catalog.Unfinished
		if s := col("status"); s != "" {
			if m.Status, err = catalog.ParseStatus(s); err != nil {
				return ports.ParseResult{}, errors.Wrapf(err, "csv: line %d", line)
			}
		} else if !m.IsEmpty() {
			m.Status = catalog.Translated
		}
		context := col("context")
		if context == "" {
			context = catalog.DefaultContext
		}
		if err := c.Add(context, m); err != nil {
			return ports.ParseResult{}, errors.Wrapf(err, "csv: line %d", line)
		}
	}
	c.Language = language
	if l, err := locale.Lookup(language); err == nil {
		fitForms(c, l.PluralCount())
	}
	return ports.ParseResult{Catalog: c, Locale: language}, nil
}

// fitForms pads or cuts plural messages to n forms; a sheet carries as
// many translation columns as its widest row needs.
func fitForms(c *catalog.Catalog, n int) {
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			if !m.Numerus {
				continue
			}
			for len(m.Translations) < n {
				m.Translations = append(m.Translations, "")
			}
			m.Translations = m.Translations[:n]
		}
	}
}

// formColumns returns the indexes of translation, translation_1, ... in
// form order.
func formColumns(idx map[string]int) []int {
	var out []int
	if i, ok := idx["translation"]; ok {
		out = append(out, i)
	}
	for n := 1; ; n++ {
		i, ok := idx["translation_"+strconv.Itoa(n)]
		if !ok {
			return out
		}
		out = append(out, i)
	}
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
