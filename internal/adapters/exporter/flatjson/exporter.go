package flatjson

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/catalog"
)

// Exporter writes finished translations as a flat JSON object keyed by
// catalog.FlatID. Plural messages become arrays of forms; retired and
// unfinished messages are left out.
type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "json" }

func (e *Exporter) Ext() string { return "json" }

func (e *Exporter) Export(c *catalog.Catalog) ([]byte, error) {
	out := map[string]any{}
	if c.Language != "" {
		out["$language"] = c.Language
	}
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			if m.Status != catalog.Translated {
				continue
			}
			id := catalog.FlatID(m.Source, m.Comment)
			if _, dup := out[id]; dup {
				continue
			}
			if m.Numerus {
				out[id] = m.Translations
			} else {
				out[id] = m.Translation()
			}
		}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	return b, errors.Wrap(err, "flatjson")
}
