package csvparser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csvexporter "github.com/steveire/grantlee/internal/adapters/exporter/csv"
	csvparser "github.com/steveire/grantlee/internal/adapters/parser/csv"
	"github.com/steveire/grantlee/internal/catalog"
)

func TestParse(t *testing.T) {
	t.Parallel()
	src := "\xEF\xBB\xBFsource,comment,numerus,translation,translation_1,language\n" +
		"Birthday,,,Geburtstag,,de_DE\n" +
		"Name,Name of a Book,,Name eines Buches,,\n" +
		"%n People,,yes,%n Person,%n Personen,\n" +
		"Today,,,,,\n" +
		",skipped,,,,\n"
	res, err := csvparser.New().Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "de_DE", res.Locale)

	c := res.Catalog
	assert.Equal(t, 4, c.Messages())
	m, ok := c.Find(catalog.DefaultContext, "%n People", "")
	require.True(t, ok)
	assert.True(t, m.Numerus)
	assert.Equal(t, []string{"%n Person", "%n Personen"}, m.Translations)
	assert.Equal(t, catalog.Translated, m.Status)

	today, ok := c.Find(catalog.DefaultContext, "Today", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Unfinished, today.Status)
	assert.Equal(t, []string{""}, today.Translations)
}

func TestParseKeepsEmptyCells(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		parser  *csvparser.Parser
		src     string
		context string
		source  string
		want    []string
	}{
		{
			name:    "tsv empty comment",
			parser:  csvparser.NewTSV(),
			src:     "context\tsource\tcomment\told_source\ttranslation\nCtx\tName\t\t\tNom\n",
			context: "Ctx",
			source:  "Name",
			want:    []string{"Nom"},
		},
		{
			name:    "csv leading space",
			parser:  csvparser.New(),
			src:     "source,translation\nIndent, eingerückt\n",
			context: catalog.DefaultContext,
			source:  "Indent",
			want:    []string{" eingerückt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := tt.parser.Parse([]byte(tt.src))
			require.NoError(t, err)
			m, ok := res.Catalog.Find(tt.context, tt.source, "")
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Translations)
			assert.Equal(t, catalog.Translated, m.Status)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"no source column", "id,translation\nx,y\n"},
		{"duplicate message", "source,comment\nName,\nName,\n"},
		{"bad status", "source,status\nName,done\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := csvparser.New().Parse([]byte(tt.src))
			require.Error(t, err)
		})
	}
}

func TestExportedSheetParsesBack(t *testing.T) {
	t.Parallel()
	c := catalog.New("fr_FR")
	require.NoError(t, c.Add("Dialog", &catalog.Message{Source: "Name", Comment: "Name of a Book", Translations: []string{"Nom d'un livre"}}))
	require.NoError(t, c.Add(catalog.DefaultContext, &catalog.Message{Source: "%n file(s)", Numerus: true,
		Translations: []string{"%n fichier", ""}, Status: catalog.Unfinished}))

	for _, pair := range []struct {
		e *csvexporter.Exporter
		p *csvparser.Parser
	}{{csvexporter.New(), csvparser.New()}, {csvexporter.NewTSV(), csvparser.NewTSV()}} {
		out, err := pair.e.Export(c)
		require.NoError(t, err)
		res, err := pair.p.Parse(out)
		require.NoError(t, err, pair.e.Format())
		assert.True(t, catalog.Equal(c, res.Catalog), pair.e.Format())
	}
}
