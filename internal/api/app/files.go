package app

import (
	"context"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
)

type FileAPI struct{ repo ports.FileRepository }

func NewFileAPI(repo ports.FileRepository) *FileAPI { return &FileAPI{repo: repo} }

func (a *FileAPI) ListByProject(ctx context.Context, projectID int64) ([]*domain.File, error) {
	return a.repo.ListByProject(ctx, projectID)
}

// Resolve finds a file of the project by numeric ID or imported path.
func (a *FileAPI) Resolve(ctx context.Context, projectID int64, ref string) (*domain.File, error) {
	if id, ok := numericID(ref); ok {
		return a.repo.Get(ctx, id)
	}
	return a.repo.GetByPath(ctx, projectID, ref)
}

func (a *FileAPI) Delete(ctx context.Context, id int64) error {
	if _, err := a.repo.Get(ctx, id); err != nil {
		return err
	}
	return a.repo.Delete(ctx, id)
}
