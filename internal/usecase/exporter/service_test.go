package exporter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/adapters/db/sqlite"
	expcsv "github.com/steveire/grantlee/internal/adapters/exporter/csv"
	"github.com/steveire/grantlee/internal/adapters/exporter/goi18n"
	exreg "github.com/steveire/grantlee/internal/adapters/exporter/registry"
	expts "github.com/steveire/grantlee/internal/adapters/exporter/ts"
	parreg "github.com/steveire/grantlee/internal/adapters/parser/registry"
	tsparser "github.com/steveire/grantlee/internal/adapters/parser/ts"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/usecase/exporter"
	"github.com/steveire/grantlee/internal/usecase/importer"
)

type fixture struct {
	svc    *exporter.Service
	files  *sqlite.FileRepo
	units  *sqlite.UnitRepo
	trans  *sqlite.TranslationRepo
	fileID int64
	source []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "grantlee.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{files: sqlite.NewFileRepo(db), units: sqlite.NewUnitRepo(db), trans: sqlite.NewTranslationRepo(db)}
	projects := sqlite.NewProjectRepo(db)
	p := &domain.Project{Name: "demo", SourceLang: "en", Context: catalog.DefaultContext}
	require.NoError(t, projects.Create(ctx, p))

	f.source, err = os.ReadFile(filepath.Join("..", "..", "catalog", "testdata", "test_de_DE.ts"))
	require.NoError(t, err)
	preg := parreg.New()
	preg.Register(tsparser.New())
	res, err := importer.New(f.files, f.units, f.trans, projects, preg, nil).Import(ctx, importer.ImportArgs{
		ProjectID: p.ID, Filename: "translations/test_de_DE.ts", Content: f.source,
	})
	require.NoError(t, err)
	f.fileID = res.FileID

	ereg := exreg.New()
	ereg.Register(expts.New())
	ereg.Register(expcsv.New())
	ereg.Register(goi18n.NewTOML())
	f.svc = exporter.New(f.files, f.units, f.trans, projects, ereg, nil)
	return f
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.svc.ExportFile(context.Background(), exporter.ExportArgs{FileID: f.fileID, Locale: "de_DE"})
	require.NoError(t, err)
	assert.Equal(t, "test_de_DE.ts", res.Filename)
	assert.Equal(t, catalog.Stats{Total: 16, Translated: 10, Unfinished: 6, Numerus: 7}, res.Stats)

	want, err := catalog.ParseBytes(f.source)
	require.NoError(t, err)
	got, err := catalog.ParseBytes(res.Content)
	require.NoError(t, err)
	assert.True(t, catalog.Equal(want, got), "exported catalog differs:\n%s", res.Content)
	assert.Equal(t, "en", got.SourceLanguage)
	assert.NoError(t, catalog.Validate(got))
}

func TestExportFormats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tests := []struct {
		format   string
		filename string
		contains string
	}{
		{"csv", "test_de_DE.csv", "de_DE,GR_FILENAME,Birthday,,,,translated,Geburtstag,"},
		{"goi18n-toml", "de-DE.toml", "Geburtstag"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			res, err := f.svc.ExportFile(context.Background(), exporter.ExportArgs{FileID: f.fileID, Locale: "de_DE", OverrideFormat: tt.format})
			require.NoError(t, err)
			assert.Equal(t, tt.filename, res.Filename)
			assert.Contains(t, string(res.Content), tt.contains)
		})
	}

	_, err := f.svc.ExportFile(context.Background(), exporter.ExportArgs{FileID: f.fileID, Locale: "de_DE", OverrideFormat: "xliff"})
	assert.Error(t, err)
}

func TestCatalogForNewLocale(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	file, err := f.files.Get(ctx, f.fileID)
	require.NoError(t, err)
	units, err := f.units.ListByFile(ctx, f.fileID)
	require.NoError(t, err)

	// A machine translation counts as finished; a plural with the wrong
	// number of forms does not.
	require.NoError(t, f.trans.Upsert(ctx, &domain.Translation{UnitID: units[0].ID, Locale: "fr_FR", Forms: []string{"Anniversaire"}, Status: domain.StatusMachine}))
	require.NoError(t, f.trans.Upsert(ctx, &domain.Translation{UnitID: units[1].ID, Locale: "fr_FR", Forms: []string{"%n personne"}, Status: domain.StatusTranslated}))

	c, err := f.svc.Catalog(ctx, file, "fr_FR")
	require.NoError(t, err)
	assert.Equal(t, "fr_FR", c.Language)
	require.NoError(t, catalog.Validate(c))

	m, ok := c.Find(catalog.DefaultContext, "Birthday", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Translated, m.Status)
	assert.Equal(t, []string{"Anniversaire"}, m.Translations)

	m, ok = c.Find(catalog.DefaultContext, "%n People", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Unfinished, m.Status)
	assert.Equal(t, []string{"", ""}, m.Translations)
}

func TestExportKeepsTranslatorComments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	file, err := f.files.Get(ctx, f.fileID)
	require.NoError(t, err)

	src := catalog.New("de_DE")
	require.NoError(t, src.Add("Menu", &catalog.Message{Source: "Open", Translations: []string{"Öffnen"}, Status: catalog.Translated, TranslatorComment: "verb"}))
	require.NoError(t, src.Add("Menu", &catalog.Message{Source: "Close", Translations: []string{""}, Status: catalog.Unfinished, TranslatorComment: "ask the author"}))
	b, err := catalog.Marshal(src)
	require.NoError(t, err)
	preg := parreg.New()
	preg.Register(tsparser.New())
	res, err := importer.New(f.files, f.units, f.trans, nil, preg, nil).Import(ctx, importer.ImportArgs{
		ProjectID: file.ProjectID, Filename: "menu_de_DE.ts", Content: b,
	})
	require.NoError(t, err)

	out, err := f.svc.ExportFile(ctx, exporter.ExportArgs{FileID: res.FileID, Locale: "de_DE"})
	require.NoError(t, err)
	got, err := catalog.ParseBytes(out.Content)
	require.NoError(t, err)
	for _, m := range src.Contexts[0].Messages {
		gm, ok := got.Find("Menu", m.Source, "")
		require.True(t, ok, m.Source)
		assert.Equal(t, m.TranslatorComment, gm.TranslatorComment)
		assert.Equal(t, m.Status, gm.Status)
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path, loc, format, ext, want string
	}{
		{"translations/app_de_DE.ts", "de_DE", "ts", "ts", "app_de_DE.ts"},
		{"app_de_DE.ts", "de_DE", "tsv", "tsv", "app_de_DE.tsv"},
		{"app_de_DE.ts", "de_DE", "goi18n-yaml", "yaml", "de-DE.yaml"},
		{"messages", "fr_FR", "json", "json", "messages.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exporter.Filename(tt.path, tt.loc, tt.format, tt.ext))
	}
}
