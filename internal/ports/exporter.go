package ports

import "github.com/steveire/grantlee/internal/catalog"

// Exporter serializes a catalog in one file format.
type Exporter interface {
	Format() string
	// Ext is the file extension of exported files, without the dot.
	Ext() string
	Export(c *catalog.Catalog) ([]byte, error)
}
