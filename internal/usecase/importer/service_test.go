package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/adapters/db/sqlite"
	csvparser "github.com/steveire/grantlee/internal/adapters/parser/csv"
	parreg "github.com/steveire/grantlee/internal/adapters/parser/registry"
	tsparser "github.com/steveire/grantlee/internal/adapters/parser/ts"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/usecase/importer"
)

type fixture struct {
	svc      *importer.Service
	projects *sqlite.ProjectRepo
	units    *sqlite.UnitRepo
	trans    *sqlite.TranslationRepo
	project  *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "grantlee.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := parreg.New()
	reg.Register(tsparser.New())
	reg.Register(csvparser.New())
	f := &fixture{
		projects: sqlite.NewProjectRepo(db),
		units:    sqlite.NewUnitRepo(db),
		trans:    sqlite.NewTranslationRepo(db),
		project:  &domain.Project{Name: "demo", SourceLang: "en", Context: catalog.DefaultContext},
	}
	require.NoError(t, f.projects.Create(context.Background(), f.project))
	f.svc = importer.New(sqlite.NewFileRepo(db), f.units, f.trans, f.projects, reg, nil)
	return f
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "catalog", "testdata", name))
	require.NoError(t, err)
	return b
}

func TestImportTS(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Import(ctx, importer.ImportArgs{
		ProjectID: f.project.ID,
		Filename:  "translations/test_de_DE.ts",
		Content:   readTestdata(t, "test_de_DE.ts"),
	})
	require.NoError(t, err)
	assert.Equal(t, "de_DE", res.Locale)
	assert.Equal(t, 16, res.Units)
	assert.Equal(t, 10, res.Translations)

	units, err := f.units.ListByFile(ctx, res.FileID)
	require.NoError(t, err)
	require.Len(t, units, 16)
	for i, u := range units {
		assert.Equal(t, i, u.Position)
	}
	assert.Equal(t, "Birthday", units[0].SourceText)
	assert.Equal(t, []domain.Location{{Filename: "test_input.cpp", Line: 2}}, units[0].Locations)
	assert.True(t, units[1].Numerus)
	assert.Equal(t, "%n people visted today", units[15].OldSource)

	tr, err := f.trans.Get(ctx, units[1].ID, "de_DE")
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, []string{"%n Person", "%n Personen"}, tr.Forms)
	assert.Equal(t, domain.StatusTranslated, tr.Status)

	missing, err := f.trans.Get(ctx, units[10].ID, "de_DE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	locales, err := f.projects.ListLocales(ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, locales, 1)
	assert.Equal(t, "de_DE", locales[0].Locale)
}

func TestReimportRefreshesFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	args := importer.ImportArgs{ProjectID: f.project.ID, Filename: "test_de_DE.ts", Content: readTestdata(t, "test_de_DE.ts")}

	first, err := f.svc.Import(ctx, args)
	require.NoError(t, err)
	second, err := f.svc.Import(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, first.FileID, second.FileID)

	units, err := f.units.ListByFile(ctx, second.FileID)
	require.NoError(t, err)
	assert.Len(t, units, 16)
}

func TestImportErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tests := []struct {
		name string
		args importer.ImportArgs
	}{
		{"unknown extension", importer.ImportArgs{Filename: "strings.po", Content: []byte("msgid \"\"")}},
		{"unknown format", importer.ImportArgs{Filename: "a.ts", Format: "xliff", Content: []byte("<TS/>")}},
		{"broken ts", importer.ImportArgs{Filename: "a.ts", Content: []byte("<html></html>")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args.ProjectID = f.project.ID
			_, err := f.svc.Import(context.Background(), tt.args)
			assert.Error(t, err)
		})
	}
}

func TestUnitsKeepsRetiredTranslations(t *testing.T) {
	t.Parallel()
	c := catalog.New("fr_FR")
	require.NoError(t, c.Add("GR_FILENAME", &catalog.Message{Source: "Old", Translations: []string{"Vieux"}, Status: catalog.Vanished}))
	require.NoError(t, c.Add("GR_FILENAME", &catalog.Message{Source: "New", Translations: []string{""}, Status: catalog.Unfinished}))

	units, trs := importer.Units(c)
	require.Len(t, units, 2)
	assert.Equal(t, catalog.MessageKey("GR_FILENAME", "Old", ""), units[0].Key)
	require.NotNil(t, trs[0])
	assert.Equal(t, domain.StatusObsolete, trs[0].Status)
	assert.Nil(t, trs[1])
}

func TestReimportDropsStaleData(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	v1 := catalog.New("de_DE")
	require.NoError(t, v1.Add("Menu", &catalog.Message{Source: "Open", Translations: []string{"Öffnen"}, Status: catalog.Translated}))
	require.NoError(t, v1.Add("Menu", &catalog.Message{Source: "Close", Translations: []string{"Schließen"}, Status: catalog.Translated}))
	v2 := catalog.New("de_DE")
	require.NoError(t, v2.Add("Menu", &catalog.Message{Source: "Open", Translations: []string{""}, Status: catalog.Unfinished, TranslatorComment: "recheck"}))

	importVersion := func(c *catalog.Catalog) importer.ImportResult {
		b, err := catalog.Marshal(c)
		require.NoError(t, err)
		res, err := f.svc.Import(ctx, importer.ImportArgs{ProjectID: f.project.ID, Filename: "menu_de_DE.ts", Content: b})
		require.NoError(t, err)
		return res
	}
	first := importVersion(v1)
	assert.Equal(t, 2, first.Translations)
	second := importVersion(v2)
	assert.Equal(t, first.FileID, second.FileID)
	assert.Equal(t, 1, second.Removed)
	assert.Zero(t, second.Translations)

	units, err := f.units.ListByFile(ctx, second.FileID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "Open", units[0].SourceText)
	assert.Equal(t, "recheck", units[0].TranslatorComment)

	tr, err := f.trans.Get(ctx, units[0].ID, "de_DE")
	require.NoError(t, err)
	assert.Nil(t, tr)
}
