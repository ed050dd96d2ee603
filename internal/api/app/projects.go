package app

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/ports"
)

type ProjectAPI struct {
	repo ports.ProjectRepository
}

func NewProjectAPI(repo ports.ProjectRepository) *ProjectAPI { return &ProjectAPI{repo: repo} }

// Create stores a project. Context is the TS context its templates
// translate in; empty means GR_FILENAME.
func (a *ProjectAPI) Create(ctx context.Context, name, sourceLang, tsContext string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("project name is required")
	}
	if sourceLang == "" {
		sourceLang = "en"
	}
	p := &domain.Project{Name: name, SourceLang: sourceLang, Context: tsContext}
	if err := a.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *ProjectAPI) List(ctx context.Context) ([]*domain.Project, error) {
	return a.repo.List(ctx)
}

// Resolve finds a project by numeric ID or name.
func (a *ProjectAPI) Resolve(ctx context.Context, ref string) (*domain.Project, error) {
	if id, ok := numericID(ref); ok {
		return a.repo.Get(ctx, id)
	}
	return a.repo.GetByName(ctx, ref)
}

func (a *ProjectAPI) Update(ctx context.Context, id int64, name, sourceLang string) (*domain.Project, error) {
	p, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		p.Name = name
	}
	if sourceLang != "" {
		p.SourceLang = sourceLang
	}
	if err := a.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *ProjectAPI) Delete(ctx context.Context, id int64) error {
	return a.repo.Delete(ctx, id)
}

// AddLocale registers a target language; it must be a known locale.
func (a *ProjectAPI) AddLocale(ctx context.Context, projectID int64, loc string) (*domain.ProjectLocale, error) {
	if _, err := locale.Lookup(loc); err != nil {
		return nil, err
	}
	pl := &domain.ProjectLocale{ProjectID: projectID, Locale: loc}
	if err := a.repo.AddLocale(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

func (a *ProjectAPI) ListLocales(ctx context.Context, projectID int64) ([]*domain.ProjectLocale, error) {
	return a.repo.ListLocales(ctx, projectID)
}

func numericID(ref string) (int64, bool) {
	id, err := cast.ToInt64E(ref)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
