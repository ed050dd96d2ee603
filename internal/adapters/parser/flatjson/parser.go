// Package flatjson reads key/value JSON message files as used by web i18n
// libraries: keys are catalog.FlatID strings, values a translation or an
// array of plural forms.
package flatjson

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/ports"
)

// LanguageKey holds the catalog language.
const LanguageKey = "$language"

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return "json" }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	data = stripBOM(data)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ports.ParseResult{}, errors.Wrap(err, "invalid json")
	}
	language, _ := m[LanguageKey].(string)
	keys := make([]string, 0, len(m))
	for k := range m {
		// Metadata fields such as $schema.
		if len(k) > 0 && k[0] == '$' {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := catalog.New(language)
	for _, k := range keys {
		source, comment := catalog.SplitFlatID(k)
		msg := &catalog.Message{Source: source, Comment: comment}
		switch v := m[k].(type) {
		case string:
			msg.Translations = []string{v}
		case []any:
			msg.Numerus = true
			for _, f := range v {
				s, _ := f.(string)
				msg.Translations = append(msg.Translations, s)
			}
		default:
			continue
		}
		msg.Status = catalog.Translated
		if msg.IsEmpty() {
			msg.Status = catalog.Unfinished
		}
		if err := c.Add(catalog.DefaultContext, msg); err != nil {
			return ports.ParseResult{}, err
		}
	}
	return ports.ParseResult{Catalog: c, Locale: language}, nil
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
