package main

import (
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	dbsqlite "github.com/steveire/grantlee/internal/adapters/db/sqlite"
	llmfactory "github.com/steveire/grantlee/internal/adapters/llm/factory"
	promptrenderer "github.com/steveire/grantlee/internal/adapters/prompt"
	apiapp "github.com/steveire/grantlee/internal/api/app"
	"github.com/steveire/grantlee/internal/config"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
	exporterusecase "github.com/steveire/grantlee/internal/usecase/exporter"
	"github.com/steveire/grantlee/internal/usecase/importer"
	jobsusecase "github.com/steveire/grantlee/internal/usecase/jobs"
	translatorusecase "github.com/steveire/grantlee/internal/usecase/translator"
)

// App holds the workbench: the SQLite store and the APIs over it.
type App struct {
	db *sql.DB

	Projects     *apiapp.ProjectAPI
	Files        *apiapp.FileAPI
	Units        *apiapp.UnitAPI
	Translations *apiapp.TranslationsAPI
	Import       *apiapp.ImportAPI
	Export       *apiapp.ExportAPI
	Providers    *apiapp.ProviderAPI
	Jobs         *apiapp.JobsAPI
	Prompts      *apiapp.PromptAPI
}

// NewApp opens the database named by cfg and wires the services.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := dbsqlite.Init(cfg.DBPath)
	if err != nil {
		return nil, errors.Wrap(err, "open workbench")
	}
	projectRepo := dbsqlite.NewProjectRepo(db)
	fileRepo := dbsqlite.NewFileRepo(db)
	unitRepo := dbsqlite.NewUnitRepo(db)
	providerRepo := dbsqlite.NewProviderRepo(db)
	templatesRepo := dbsqlite.NewTemplateRepo(db)
	cacheRepo := dbsqlite.NewCacheRepo(db)
	translationRepo := dbsqlite.NewTranslationRepo(db)
	jobRepo := dbsqlite.NewJobRepo(db)
	settingsRepo := dbsqlite.NewSettingsRepo(db)

	importSvc := importer.New(fileRepo, unitRepo, translationRepo, projectRepo, apiapp.NewDefaultParserRegistry(), log.Named("import"))
	exportSvc := exporterusecase.New(fileRepo, unitRepo, translationRepo, projectRepo, apiapp.NewDefaultExporterRegistry(), log.Named("export"))

	pr := promptrenderer.New(templatesRepo)
	transSvc := translatorusecase.New(translatorusecase.Deps{
		Providers: providerRepo,
		Cache:     cacheRepo,
		Prompt:    pr,
		BuildProvider: func(p *domain.Provider) (ports.Provider, error) {
			prov, ok := llmfactory.FromProvider(p, cfg.Timeout)
			if !ok {
				return nil, errors.Errorf("unsupported provider: %s", p.Type)
			}
			return prov, nil
		},
		Log: log.Named("translate"),
	})
	runner := jobsusecase.NewRunner(jobsusecase.Deps{
		Jobs:         jobRepo,
		Projects:     projectRepo,
		Files:        fileRepo,
		Units:        unitRepo,
		Providers:    providerRepo,
		Translations: translationRepo,
		Log:          log.Named("jobs"),
		Workers:      cfg.Workers,
		ItemTimeout:  cfg.Timeout,
	}, transSvc)

	return &App{
		db:           db,
		Projects:     apiapp.NewProjectAPI(projectRepo),
		Files:        apiapp.NewFileAPI(fileRepo),
		Units:        apiapp.NewUnitAPI(unitRepo),
		Translations: apiapp.NewTranslationsAPI(translationRepo, unitRepo),
		Import:       apiapp.NewImportAPI(importSvc),
		Export:       apiapp.NewExportAPI(exportSvc),
		Providers:    apiapp.NewProviderAPI(providerRepo, settingsRepo, cfg.Timeout, log.Named("providers")),
		Jobs:         apiapp.NewJobsAPI(runner, jobRepo),
		Prompts:      apiapp.NewPromptAPI(templatesRepo, pr),
	}, nil
}

func (a *App) Close() error { return a.db.Close() }
