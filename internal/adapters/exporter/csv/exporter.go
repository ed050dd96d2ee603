package csv

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/catalog"
)

// Exporter writes one row per message. Plural forms after the first go to
// translation_1, translation_2 and so on.
type Exporter struct {
	format string
	comma  rune
}

func New() *Exporter { return &Exporter{format: "csv", comma: ','} }

// NewTSV writes tab separated files.
func NewTSV() *Exporter { return &Exporter{format: "tsv", comma: '\t'} }

func (e *Exporter) Format() string { return e.format }

func (e *Exporter) Ext() string { return e.format }

func (e *Exporter) Export(c *catalog.Catalog) ([]byte, error) {
	width := 1
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			if len(m.Translations) > width {
				width = len(m.Translations)
			}
		}
	}
	header := []string{"language", "context", "source", "comment", "old_source", "numerus", "status", "translation"}
	for i := 1; i < width; i++ {
		header = append(header, "translation_"+strconv.Itoa(i))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = e.comma
	_ = w.Write(header)
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			numerus := ""
			if m.Numerus {
				numerus = "yes"
			}
			row := []string{c.Language, ctx.Name, m.Source, m.Comment, m.OldSource, numerus, m.Status.String()}
			forms := make([]string, width)
			copy(forms, m.Translations)
			_ = w.Write(append(row, forms...))
		}
	}
	w.Flush()
	return buf.Bytes(), errors.Wrap(w.Error(), "csv")
}
