package app

import (
	"context"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
)

type UnitAPI struct{ repo ports.UnitRepository }

func NewUnitAPI(repo ports.UnitRepository) *UnitAPI { return &UnitAPI{repo: repo} }

func (a *UnitAPI) ListByFile(ctx context.Context, fileID int64) ([]*domain.Unit, error) {
	return a.repo.ListByFile(ctx, fileID)
}

func (a *UnitAPI) Get(ctx context.Context, id int64) (*domain.Unit, error) {
	return a.repo.Get(ctx, id)
}
