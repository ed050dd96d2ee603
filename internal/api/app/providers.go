package app

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/steveire/grantlee/internal/adapters/llm/factory"
	llmreg "github.com/steveire/grantlee/internal/adapters/llm/registry"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
)

// DefaultProviderKey names the setting holding the provider used when a
// command does not pick one.
const DefaultProviderKey = "default_provider"

type ProviderAPI struct {
	repo     ports.ProviderRepository
	settings ports.SettingsRepository
	timeout  time.Duration
	log      *zap.Logger
}

func NewProviderAPI(repo ports.ProviderRepository, settings ports.SettingsRepository, timeout time.Duration, log *zap.Logger) *ProviderAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProviderAPI{repo: repo, settings: settings, timeout: timeout, log: log}
}

func (a *ProviderAPI) Create(ctx context.Context, p domain.Provider) (*domain.Provider, error) {
	if p.Type == "" || p.Name == "" {
		return nil, errors.New("type and name are required")
	}
	if _, ok := factory.FromProvider(&p, a.timeout); !ok {
		return nil, errors.Errorf("unsupported provider type: %s", p.Type)
	}
	if err := a.normalizeModel(ctx, &p); err != nil {
		a.log.Warn("model lookup failed", zap.String("provider", p.Name), zap.Error(err))
	}
	if err := a.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	p.APIKey = mask(p.APIKey)
	return &p, nil
}

func (a *ProviderAPI) Update(ctx context.Context, p domain.Provider) (*domain.Provider, error) {
	if p.ID == 0 {
		return nil, errors.New("id is required")
	}
	// A masked or empty key keeps the stored one.
	if strings.HasPrefix(p.APIKey, "****") || p.APIKey == "" {
		existing, err := a.repo.Get(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.APIKey = existing.APIKey
	}
	if err := a.normalizeModel(ctx, &p); err != nil {
		a.log.Warn("model lookup failed", zap.String("provider", p.Name), zap.Error(err))
	}
	if err := a.repo.Update(ctx, &p); err != nil {
		return nil, err
	}
	p.APIKey = mask(p.APIKey)
	return &p, nil
}

func (a *ProviderAPI) List(ctx context.Context) ([]*domain.Provider, error) {
	list, err := a.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		p.APIKey = mask(p.APIKey)
	}
	return list, nil
}

// Resolve finds a provider by numeric ID or name. An empty ref means the
// default provider setting.
func (a *ProviderAPI) Resolve(ctx context.Context, ref string) (*domain.Provider, error) {
	if ref == "" && a.settings != nil {
		v, err := a.settings.Get(ctx, DefaultProviderKey)
		if err != nil {
			return nil, err
		}
		ref = v
	}
	if ref == "" {
		return nil, errors.New("no provider given and no default provider set")
	}
	if id, ok := numericID(ref); ok {
		return a.repo.Get(ctx, id)
	}
	list, err := a.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		if p.Name == ref {
			return p, nil
		}
	}
	return nil, errors.Wrapf(ports.ErrNotFound, "provider %s", ref)
}

// SetDefault makes the provider the one used when none is given.
func (a *ProviderAPI) SetDefault(ctx context.Context, id int64) error {
	p, err := a.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return a.settings.Set(ctx, DefaultProviderKey, p.Name)
}

type ModelInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContextTokens int    `json:"context_tokens"`
}

// ListModels asks the provider for its models and caches their names.
func (a *ProviderAPI) ListModels(ctx context.Context, id int64) ([]ModelInfo, error) {
	p, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prov, ok := factory.FromProvider(p, a.timeout)
	if !ok {
		return nil, errors.Errorf("unsupported provider type: %s", p.Type)
	}
	models, err := prov.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ModelInfo, 0, len(models))
	names := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, ModelInfo{Name: m.Name, Description: m.Description, ContextTokens: m.ContextTokens})
		names = append(names, m.Name)
	}
	if err := a.repo.SaveModelCache(ctx, id, names); err != nil {
		a.log.Warn("model cache store failed", zap.Int64("provider", id), zap.Error(err))
	}
	return out, nil
}

// CachedModels returns the model names stored by the last ListModels.
func (a *ProviderAPI) CachedModels(ctx context.Context, id int64) ([]string, error) {
	ms, err := a.repo.ListModelCache(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out, nil
}

type ProviderTestResult struct {
	Ok          bool   `json:"ok"`
	Translation string `json:"translation,omitempty"`
	Raw         string `json:"raw,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Test translates "Hello" from English into target with the provider's
// default model. Provider failures are reported in the result.
func (a *ProviderAPI) Test(ctx context.Context, id int64, target string) (ProviderTestResult, error) {
	p, err := a.repo.Get(ctx, id)
	if err != nil {
		return ProviderTestResult{}, err
	}
	if err := a.normalizeModel(ctx, p); err != nil {
		return ProviderTestResult{Error: err.Error()}, nil
	}
	prov, ok := factory.FromProvider(p, a.timeout)
	if !ok {
		return ProviderTestResult{}, errors.Errorf("unsupported provider type: %s", p.Type)
	}
	if target == "" {
		target = "de_DE"
	}
	res, err := prov.Translate(ctx, ports.Segment{Key: "test", Text: "Hello", Forms: 1}, ports.TranslateParams{
		SourceLang:   "en",
		TargetLang:   target,
		Model:        p.Model,
		SystemPrompt: "You are a professional localization translator. Translate from en to " + target + `. Return only JSON: {"translation":"..."}.`,
		UserPrompt:   "Text: Hello",
	})
	if err != nil {
		return ProviderTestResult{Error: err.Error()}, nil
	}
	return ProviderTestResult{Ok: true, Translation: strings.Join(res.Forms, " | "), Raw: res.Raw}, nil
}

// Check tests the endpoint of every stored provider.
func (a *ProviderAPI) Check(ctx context.Context) ([]llmreg.Health, error) {
	list, err := a.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	reg := llmreg.New(a.timeout)
	for _, p := range list {
		prov, _ := factory.FromProvider(p, a.timeout)
		reg.Register(p.Name, prov)
	}
	return reg.HealthCheck(ctx), nil
}

// normalizeModel replaces an OpenRouter display label with its model ID.
func (a *ProviderAPI) normalizeModel(ctx context.Context, p *domain.Provider) error {
	if p == nil || p.Type != domain.ProviderOpenRouter {
		return nil
	}
	m := strings.TrimSpace(p.Model)
	if m == "" || !strings.ContainsAny(m, " ()") {
		return nil
	}
	prov, ok := factory.FromProvider(p, a.timeout)
	if !ok {
		return nil
	}
	models, err := prov.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, mi := range models {
		if strings.EqualFold(mi.Name, m) || strings.EqualFold(mi.Description, m) {
			p.Model = mi.Name
			return nil
		}
	}
	return nil
}

func (a *ProviderAPI) Delete(ctx context.Context, id int64) error {
	return a.repo.Delete(ctx, id)
}

func mask(s string) string {
	if len(s) <= 4 {
		return s
	}
	return "****" + s[len(s)-4:]
}
