package app

import (
	"context"
	"os"

	"github.com/pkg/errors"

	csvp "github.com/steveire/grantlee/internal/adapters/parser/csv"
	jsonp "github.com/steveire/grantlee/internal/adapters/parser/flatjson"
	parreg "github.com/steveire/grantlee/internal/adapters/parser/registry"
	tsp "github.com/steveire/grantlee/internal/adapters/parser/ts"
	"github.com/steveire/grantlee/internal/usecase/importer"
)

type ImportAPI struct {
	svc *importer.Service
}

func NewImportAPI(svc *importer.Service) *ImportAPI { return &ImportAPI{svc: svc} }

type ImportRequest struct {
	ProjectID int64  `json:"project_id"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	Locale    string `json:"locale"`
	Content   []byte `json:"content"`
}

type ImportResponse struct {
	FileID       int64  `json:"file_id"`
	Locale       string `json:"locale"`
	Units        int    `json:"units"`
	Translations int    `json:"translations"`
	Removed      int    `json:"removed"`
}

func (a *ImportAPI) Import(ctx context.Context, req ImportRequest) (ImportResponse, error) {
	res, err := a.svc.Import(ctx, importer.ImportArgs{ProjectID: req.ProjectID, Filename: req.Filename, Format: req.Format, Locale: req.Locale, Content: req.Content})
	if err != nil {
		return ImportResponse{}, err
	}
	return ImportResponse{FileID: res.FileID, Locale: res.Locale, Units: res.Units, Translations: res.Translations, Removed: res.Removed}, nil
}

// ImportPath reads a catalog from disk and imports it under its path.
func (a *ImportAPI) ImportPath(ctx context.Context, projectID int64, path, format, locale string) (ImportResponse, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ImportResponse{}, errors.Wrap(err, "read catalog")
	}
	return a.Import(ctx, ImportRequest{ProjectID: projectID, Filename: path, Format: format, Locale: locale, Content: b})
}

// NewDefaultParserRegistry registers every built-in input format.
func NewDefaultParserRegistry() *parreg.Registry {
	reg := parreg.New()
	reg.Register(tsp.New())
	reg.Register(csvp.New())
	reg.Register(csvp.NewTSV())
	reg.Register(jsonp.New())
	return reg
}
