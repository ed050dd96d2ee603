package ports

import "github.com/steveire/grantlee/internal/catalog"

type ParseResult struct {
	Catalog *catalog.Catalog
	Locale  string // optional, if detected from file
}

// Parser reads one file format into the catalog model.
type Parser interface {
	Format() string
	Parse(data []byte) (ParseResult, error)
}
