// Package goi18n writes catalogs as go-i18n message files so Go programs
// can load them with i18n.Bundle.
package goi18n

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/locale"
)

type Exporter struct {
	format  string
	ext     string
	marshal func(any) ([]byte, error)
}

// NewTOML writes files for bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal).
func NewTOML() *Exporter {
	return &Exporter{format: "goi18n-toml", ext: "toml", marshal: toml.Marshal}
}

// NewYAML writes files for bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal).
func NewYAML() *Exporter {
	return &Exporter{format: "goi18n-yaml", ext: "yaml", marshal: yaml.Marshal}
}

func (e *Exporter) Format() string { return e.format }

func (e *Exporter) Ext() string { return e.ext }

// Messages converts finished translations of c to go-i18n messages. IDs
// are catalog.FlatID strings; plural forms are mapped to the CLDR
// categories of the catalog language.
func Messages(c *catalog.Catalog) ([]*i18n.Message, error) {
	var categories []string
	var out []*i18n.Message
	seen := map[string]bool{}
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			if m.Status != catalog.Translated {
				continue
			}
			id := catalog.FlatID(m.Source, m.Comment)
			if seen[id] {
				continue
			}
			seen[id] = true
			msg := &i18n.Message{ID: id, Description: m.ExtraComment}
			if !m.Numerus {
				msg.Other = m.Translation()
				out = append(out, msg)
				continue
			}
			if categories == nil {
				l, err := locale.Lookup(c.Language)
				if err != nil {
					return nil, errors.Wrap(err, "goi18n: plural categories")
				}
				categories = l.Categories()
			}
			for i, cat := range categories {
				if i < len(m.Translations) {
					setForm(msg, cat, m.Translations[i])
				}
			}
			out = append(out, msg)
		}
	}
	return out, nil
}

func setForm(msg *i18n.Message, category, text string) {
	switch category {
	case "zero":
		msg.Zero = text
	case "one":
		msg.One = text
	case "two":
		msg.Two = text
	case "few":
		msg.Few = text
	case "many":
		msg.Many = text
	default:
		msg.Other = text
	}
}

// Export writes a document keyed by message ID. Singular messages without
// a description are plain strings, the rest tables of plural categories.
func (e *Exporter) Export(c *catalog.Catalog) ([]byte, error) {
	msgs, err := Messages(c)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any, len(msgs))
	for _, m := range msgs {
		doc[m.ID] = value(m)
	}
	b, err := e.marshal(doc)
	return b, errors.Wrap(err, e.format)
}

func value(m *i18n.Message) any {
	fields := map[string]string{}
	for k, v := range map[string]string{
		"description": m.Description,
		"zero":        m.Zero,
		"one":         m.One,
		"two":         m.Two,
		"few":         m.Few,
		"many":        m.Many,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return m.Other
	}
	fields["other"] = m.Other
	return fields
}
