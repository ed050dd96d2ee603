package factory

import (
	"time"

	httpprov "github.com/steveire/grantlee/internal/adapters/llm/httpclient"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
)

// FromProvider returns an HTTP-backed provider for the given record. It
// reports false for provider types the client cannot talk to.
func FromProvider(p *domain.Provider, timeout time.Duration) (ports.Provider, bool) {
	switch p.Type {
	case domain.ProviderOpenRouter, domain.ProviderOllama:
	default:
		return nil, false
	}
	c := httpprov.New(p.Type, p.APIKey, p.BaseURL, p.Model)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c, true
}
