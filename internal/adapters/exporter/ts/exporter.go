package ts

import (
	"github.com/steveire/grantlee/internal/catalog"
)

// Exporter writes Qt Linguist TS files.
type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "ts" }

func (e *Exporter) Ext() string { return "ts" }

func (e *Exporter) Export(c *catalog.Catalog) ([]byte, error) {
	return catalog.Marshal(c)
}
