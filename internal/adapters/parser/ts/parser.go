package tsparser

import (
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/ports"
)

// Parser reads Qt Linguist TS files.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return "ts" }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	c, err := catalog.ParseBytes(data)
	if err != nil {
		return ports.ParseResult{}, err
	}
	return ports.ParseResult{Catalog: c, Locale: c.Language}, nil
}
