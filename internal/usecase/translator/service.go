// Package translator asks LLM providers for message translations.
package translator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/ports"
)

const defaultRetries = 2

type Deps struct {
	Providers ports.ProviderRepository
	Cache     ports.CacheRepository
	Prompt    ports.PromptRenderer
	// BuildProvider returns a concrete ports.Provider for a provider record.
	BuildProvider func(*domain.Provider) (ports.Provider, error)
	// Retries bounds the retries of malformed answers; 0 means 2.
	Retries int
	// Backoff returns the retry schedule; nil means exponential from 200ms.
	Backoff func() backoff.BackOff
	Log     *zap.Logger
}

type Service struct{ d Deps }

func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Retries <= 0 {
		d.Retries = defaultRetries
	}
	if d.Backoff == nil {
		d.Backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			return b
		}
	}
	return &Service{d: d}
}

type TranslateArgs struct {
	ProviderID     int64
	Unit           *domain.Unit
	SourceLang     string
	TargetLang     string
	Model          string
	Project        string
	FilePath       string
	SystemOverride string
	UserOverride   string
	BypassCache    bool
}

// TranslateOne translates one unit and returns its forms: one for singular
// units, one per plural category of the target language otherwise. Qt
// argument markers and markup tags are masked before the provider sees the
// text and must all come back in every form.
func (s *Service) TranslateOne(ctx context.Context, a TranslateArgs) ([]string, error) {
	if a.Unit == nil {
		return nil, errors.New("unit is required")
	}
	prov, err := s.d.Providers.Get(ctx, a.ProviderID)
	if err != nil {
		return nil, err
	}
	model := a.Model
	if model == "" {
		model = prov.Model
	}

	tokens := Protected(a.Unit.SourceText)
	masked, unmask := maskTokens(a.Unit.SourceText, tokens)
	maskedTokens := make([]string, len(tokens))
	for i := range tokens {
		maskedTokens[i] = token(i)
	}

	forms, categories := 1, []string(nil)
	typ := domain.PromptTranslateSingle
	if a.Unit.Numerus {
		typ = domain.PromptTranslatePlural
		forms, categories = 2, []string{"one", "other"}
		if l, err := locale.Lookup(a.TargetLang); err == nil {
			forms, categories = l.PluralCount(), l.Categories()
		}
	}

	if !a.BypassCache {
		ce, err := s.d.Cache.Get(ctx, a.Unit.SourceText, a.Unit.Comment, a.SourceLang, a.TargetLang, prov.Type, model)
		if err != nil {
			s.d.Log.Warn("cache lookup failed", zap.Error(err))
		} else if ce != nil && len(ce.Forms) == forms {
			s.d.Log.Debug("cache hit", zap.String("key", a.Unit.Key), zap.String("locale", a.TargetLang))
			return ce.Forms, nil
		}
	}

	data := ports.PromptData{
		SrcLang:      a.SourceLang,
		TgtLang:      a.TargetLang,
		Key:          a.Unit.Key,
		Text:         masked,
		Comment:      a.Unit.Comment,
		OldSource:    a.Unit.OldSource,
		Context:      a.Unit.Context,
		FilePath:     a.FilePath,
		Project:      a.Project,
		Numerus:      a.Unit.Numerus,
		Categories:   categories,
		Placeholders: maskedTokens,
	}
	system, user := a.SystemOverride, a.UserOverride
	if system == "" {
		if system, err = s.d.Prompt.Render(ctx, domain.ScopeProvider, &prov.ID, typ, domain.RoleSystem, data); err != nil {
			return nil, err
		}
	}
	if user == "" {
		if user, err = s.d.Prompt.Render(ctx, domain.ScopeProvider, &prov.ID, typ, domain.RoleUser, data); err != nil {
			return nil, err
		}
	}

	if s.d.BuildProvider == nil {
		return nil, errors.New("translate: provider builder missing")
	}
	adapter, err := s.d.BuildProvider(prov)
	if err != nil {
		return nil, err
	}
	seg := ports.Segment{
		Key:          a.Unit.Key,
		Text:         masked,
		Comment:      a.Unit.Comment,
		Context:      a.Unit.Context,
		Numerus:      a.Unit.Numerus,
		Forms:        forms,
		Placeholders: maskedTokens,
	}
	params := ports.TranslateParams{
		SourceLang:   a.SourceLang,
		TargetLang:   a.TargetLang,
		Model:        model,
		SystemPrompt: system,
		UserPrompt:   user,
	}
	attempt := 0
	res, err := backoff.RetryWithData(func() (ports.TranslateResult, error) {
		attempt++
		res, err := adapter.Translate(ctx, seg, params)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ports.ErrMalformedAnswer) {
			return res, backoff.Permanent(err)
		}
		s.d.Log.Debug("malformed answer, retrying", zap.String("key", a.Unit.Key), zap.Int("attempt", attempt), zap.Error(err))
		return res, err
	}, backoff.WithContext(backoff.WithMaxRetries(s.d.Backoff(), uint64(s.d.Retries)), ctx))
	if err != nil {
		return nil, err
	}
	if len(res.Forms) != forms {
		return nil, errors.Errorf("provider returned %d forms, want %d", len(res.Forms), forms)
	}

	out := make([]string, len(res.Forms))
	for i, f := range res.Forms {
		out[i] = unmask(strings.TrimSpace(f))
		for _, tk := range tokens {
			if !strings.Contains(out[i], tk) {
				return nil, errors.Errorf("placeholder missing in translation: %s", tk)
			}
		}
	}

	if err := s.d.Cache.Put(ctx, &domain.CacheEntry{
		SourceText: a.Unit.SourceText,
		Comment:    a.Unit.Comment,
		SrcLang:    a.SourceLang,
		TgtLang:    a.TargetLang,
		Provider:   prov.Type,
		Model:      model,
		Forms:      out,
	}); err != nil {
		s.d.Log.Warn("cache store failed", zap.Error(err))
	}
	return out, nil
}

// Qt argument markers (%1, %L2) and brace placeholders must survive
// translation verbatim; %n is left visible so plural forms can place it.
var (
	argRE         = regexp.MustCompile(`%L?\d{1,2}`)
	placeholderRE = regexp.MustCompile(`\{[^{}]+\}`)
	tagRE         = regexp.MustCompile(`<[^<>]+>`)
)

// Protected lists the distinct tokens of s that a translation must keep.
func Protected(s string) []string {
	uniq := map[string]struct{}{}
	for _, re := range []*regexp.Regexp{argRE, placeholderRE, tagRE} {
		for _, m := range re.FindAllString(s, -1) {
			uniq[m] = struct{}{}
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	out := make([]string, 0, len(uniq))
	for v := range uniq {
		out = append(out, v)
	}
	// Longest first so %10 is masked before %1.
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func token(i int) string { return fmt.Sprintf("__PH_%d__", i) }

func maskTokens(s string, tokens []string) (string, func(string) string) {
	pairs := make([]string, 0, 2*len(tokens))
	masked := s
	for i, tk := range tokens {
		masked = strings.ReplaceAll(masked, tk, token(i))
		pairs = append(pairs, token(i), tk)
	}
	r := strings.NewReplacer(pairs...)
	return masked, r.Replace
}
