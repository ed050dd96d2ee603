package localizer_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/adapters/localizer"
	"github.com/steveire/grantlee/internal/template"
)

func catalogs(t *testing.T) *localizer.Catalog {
	t.Helper()
	dir := filepath.Join("..", "..", "catalog", "testdata")
	cats, err := localizer.LoadCatalogs(filepath.Join(dir, "test_de_DE.ts"), filepath.Join(dir, "test_fr_FR.ts"))
	require.NoError(t, err)
	l, err := localizer.NewCatalog("de_DE", cats)
	require.NoError(t, err)
	return l
}

func TestCatalogStrings(t *testing.T) {
	t.Parallel()
	de := catalogs(t)
	frL, err := de.ForLocale("fr_FR")
	require.NoError(t, err)
	date := time.Date(2005, 5, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		source  string
		plural  string
		comment string
		args    []any
		de, fr  string
	}{
		{"string-01", "Birthday", "", "", nil, "Geburtstag", "Anniversaire"},
		{"string-02", "%n People", "%n People", "", []any{1}, "1 Person", "1 Personne"},
		{"string-03", "%n People", "%n People", "", []any{2}, "2 Personen", "2 Personnes"},
		{"string-04", "Name", "", "Name of a Book", nil, "Name eines Buches", "Nom d'un livre"},
		{"string-05", "Name", "", "Name of a Person", nil, "Namen einer Person", "Nom d'une personne"},
		{"string-06", "%n People", "%n People", "%n people are logged in", []any{1}, "1 Person angemeldet", "1 Personne connecté"},
		{"string-07", "%n People", "%n People", "%n people are logged in", []any{2}, "2 Personen angemeldet", "2 Personnes connecté"},
		{"string-08", "%n file(s) copied to %1", "%n files copied to %1", "", []any{1, "destinationFolder"}, "1 Datei in destinationFolder kopiert", "1 fichier copié dans destinationFolder"},
		{"string-09", "%n file(s) copied to %1", "%n files copied to %1", "", []any{2, "destinationFolder"}, "2 Datein in destinationFolder kopiert", "2 fichiers copiés dans destinationFolder"},
		{"string-14", "from %1 to %2", "", "Files are being copied from %1 to %2", []any{"sourceFolder", "destinationFolder"}, "nach destinationFolder von sourceFolder", "à partir de sourceFolder destinationFolder"},
		{"string-15", "%1 messages at %2, fraction of total: %3. Rating : %4", "", "", []any{1000, date, 0.6, 4.8},
			"1000 Nachrichten am 2005-05-07, ratio: 0.6. Bemessungen : 4.8",
			"1000 messages au 2005-05-07, la fraction du total: 0.6. Note: 4.8"},
		{"unfinished falls back", "Today is %1", "", "", []any{"Monday"}, "Today is Monday", "Aujourd'hui est Monday"},
		{"unfinished plural falls back", "%n people today", "%n people today", "", []any{3}, "3 people today", "3 personnes aujourd'hui"},
		{"unknown message", "Never extracted", "", "", nil, "Never extracted", "Never extracted"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for _, c := range []struct {
				l    template.Localizer
				want string
			}{{de, tt.de}, {frL, tt.fr}} {
				var got string
				if tt.plural != "" {
					got = c.l.TranslatePlural(tt.source, tt.plural, tt.comment, tt.args...)
				} else {
					got = c.l.Translate(tt.source, tt.comment, tt.args...)
				}
				assert.Equal(t, c.want, got, c.l.CurrentLocale())
			}
		})
	}
}

func TestCatalogFormatsNumbers(t *testing.T) {
	t.Parallel()
	de := catalogs(t)
	assert.Equal(t, "1.000", de.LocalizeNumber(1000))
	assert.Equal(t, "de_DE", de.CurrentLocale())
}

func TestCatalogRendersTemplates(t *testing.T) {
	t.Parallel()
	de := catalogs(t)
	e := template.New(template.WithLocalizer(de))

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"i18n", `{% i18n "Birthday" %}`, "Geburtstag"},
		{"i18nc", `{% i18nc "Name of a Person" "Name" %}`, "Namen einer Person"},
		{"i18np", `{% i18np "%n People" "%n People" count %}`, "3 Personen"},
		{"with_locale", `{% with_locale "fr_FR" %}{% i18n "Today" %}{% endwith_locale %} {% i18n "Today" %}`, "Aujourd&#39;hui Today"},
		{"underscore", `{{ _("Birthday") }}`, "Geburtstag"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tpl, err := e.FromString(tt.name, tt.src)
			require.NoError(t, err)
			got, err := tpl.Render(map[string]any{"count": 3})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCatalogUnknownLocale(t *testing.T) {
	t.Parallel()
	de := catalogs(t)
	_, err := de.ForLocale("it_IT")
	require.ErrorIs(t, err, localizer.ErrNoCatalog)
}

func TestBundle(t *testing.T) {
	t.Parallel()
	b, err := localizer.NewMessageBundle("en")
	require.NoError(t, err)
	_, err = b.ParseMessageFileBytes([]byte(`
Birthday = "Geburtstag"

["Name of a Book|Name"]
other = "Name eines Buches"

["%n People"]
one = "%n Person"
other = "%n Personen"
`), "de-DE.toml")
	require.NoError(t, err)

	de := localizer.NewBundle(b, "de-DE", nil)
	assert.Equal(t, "Geburtstag", de.Translate("Birthday", ""))
	assert.Equal(t, "Name eines Buches", de.Translate("Name", "Name of a Book"))
	assert.Equal(t, "1 Person", de.TranslatePlural("%n People", "%n People", "", 1))
	assert.Equal(t, "2 Personen", de.TranslatePlural("%n People", "%n People", "", 2))
	assert.Equal(t, "Today is Monday", de.Translate("Today is %1", "", "Monday"))
	assert.Equal(t, "1.000", de.LocalizeNumber(1000))

	fr, err := de.ForLocale("fr")
	require.NoError(t, err)
	assert.Equal(t, "Birthday", fr.Translate("Birthday", ""))
	assert.Equal(t, "2 items", fr.TranslatePlural("%n item", "%n items", "", 2))
}
