package app

import (
	"context"

	csvexp "github.com/steveire/grantlee/internal/adapters/exporter/csv"
	jsonexp "github.com/steveire/grantlee/internal/adapters/exporter/flatjson"
	i18nexp "github.com/steveire/grantlee/internal/adapters/exporter/goi18n"
	exreg "github.com/steveire/grantlee/internal/adapters/exporter/registry"
	tsexp "github.com/steveire/grantlee/internal/adapters/exporter/ts"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/usecase/exporter"
)

type ExportAPI struct{ svc *exporter.Service }

func NewExportAPI(s *exporter.Service) *ExportAPI { return &ExportAPI{svc: s} }

type ExportFileRequest struct {
	FileID         int64  `json:"file_id"`
	Locale         string `json:"locale"`
	OverrideFormat string `json:"override_format"`
}

type ExportFileResponse struct {
	Filename string        `json:"filename"`
	Format   string        `json:"format"`
	Content  []byte        `json:"content"`
	Stats    catalog.Stats `json:"stats"`
}

func (a *ExportAPI) ExportFile(ctx context.Context, req ExportFileRequest) (ExportFileResponse, error) {
	res, err := a.svc.ExportFile(ctx, exporter.ExportArgs{FileID: req.FileID, Locale: req.Locale, OverrideFormat: req.OverrideFormat})
	if err != nil {
		return ExportFileResponse{}, err
	}
	return ExportFileResponse{Filename: res.Filename, Format: res.Format, Content: res.Content, Stats: res.Stats}, nil
}

// NewDefaultExporterRegistry registers every built-in output format.
func NewDefaultExporterRegistry() *exreg.Registry {
	reg := exreg.New()
	reg.Register(tsexp.New())
	reg.Register(csvexp.New())
	reg.Register(csvexp.NewTSV())
	reg.Register(jsonexp.New())
	reg.Register(i18nexp.NewTOML())
	reg.Register(i18nexp.NewYAML())
	return reg
}
