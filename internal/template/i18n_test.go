package template_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/template"
)

// dictLocalizer translates from a fixed table and falls back to the source.
type dictLocalizer struct {
	template.NullLocalizer
	locale string
	words  map[string]string
	others map[string]*dictLocalizer
}

func (d *dictLocalizer) CurrentLocale() string { return d.locale }

func (d *dictLocalizer) Translate(source, comment string, args ...any) string {
	if t, ok := d.words[source+"|"+comment]; ok {
		source = t
	} else if t, ok := d.words[source]; ok {
		source = t
	}
	return template.SubstituteArgs(source, args...)
}

func (d *dictLocalizer) TranslatePlural(source, plural, comment string, args ...any) string {
	n, rest := template.PluralCount(args)
	text := d.Translate(source, comment)
	if n != 1 {
		text = d.Translate(plural, comment)
	}
	return template.SubstituteArgs(template.ReplacePercentN(text, n, d), rest...)
}

func (d *dictLocalizer) LocalizeNumber(n int64) string {
	if d.locale == "de_DE" && n >= 1000 {
		return fmt.Sprintf("%d.%03d", n/1000, n%1000)
	}
	return d.NullLocalizer.LocalizeNumber(n)
}

func (d *dictLocalizer) ForLocale(name string) (template.Localizer, error) {
	if l, ok := d.others[name]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("no catalog for %s", name)
}

func newDictLocalizer() *dictLocalizer {
	de := &dictLocalizer{locale: "de_DE", words: map[string]string{
		"Today":    "Heute",
		"%n item":  "%n Eintrag",
		"%n items": "%n Einträge",
	}}
	fr := &dictLocalizer{locale: "fr_FR", words: map[string]string{
		"Today":               "Aujourd'hui",
		"Name|Name of a Book": "Nom d'un livre",
		"Name":                "Nom",
		"%1 messages at %2":   "%1 messages à %2",
	}}
	fr.others = map[string]*dictLocalizer{"de_DE": de, "fr_FR": fr}
	de.others = fr.others
	return fr
}

func TestI18nTags(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"date":  time.Date(2005, 5, 7, 0, 0, 0, 0, time.UTC),
		"stamp": time.Date(2005, 5, 7, 12, 30, 0, 0, time.UTC),
		"num":   3,
		"one":   1,
		"safe":  template.MarkSafe("Today"),
		"today": "Today",
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"i18n escaped", "{% i18n 'Today' %}", "Aujourd&#39;hui"},
		{"i18n untranslated", "{% i18n 'Yesterday' %}", "Yesterday"},
		{"i18nc", "{% i18nc 'Name of a Book' 'Name' %}", "Nom d&#39;un livre"},
		{"i18nc falls back to source key", "{% i18nc 'Name of a Person' 'Name' %}", "Nom"},
		{"underscore", "{{ _('Today') }}", "Aujourd&#39;hui"},
		{"underscore variable", "{{ _(today) }}", "Aujourd&#39;hui"},
		{"safe input becomes unsafe", "{{ _(safe) }}", "Aujourd&#39;hui"},
		{"i18n_var", "{% i18n_var 'Today' as t %}[{{ t }}]", "[Aujourd&#39;hui]"},
		{"i18nc_var", "{% i18nc_var 'Name of a Book' 'Name' as t %}{{ t|upper }}", "NOM D&#39;UN LIVRE"},
		{"args", "{% i18n '%1 messages at %2' _(1000) _(date) %}", "1000 messages à 7 May 2005"},
		{"datetime arg", "{% i18n 'At %1' _(stamp) %}", "At 7 May 2005 12:30:00"},
		{"plain arg", "{% i18n 'At %1' date %}", "At 2005-05-07"},
		{"float", "{{ _(0.6) }}", "0.60"},
		{"integer", "{{ _(num) }}", "3"},
		{"filter argument", "{{ 'this'|cut:_('i') }}", "ths"},
		{"i18np singular", "{% i18np '%n item' '%n items' one %}", "1 item"},
		{"i18np plural", "{% i18np '%n item' '%n items' num %}", "3 items"},
		{"i18np default plural", "{% i18np '%n file(s)' num %}", "3 file(s)"},
		{"i18np args", "{% i18np '%n of %1' '%n of %1' num 'all' %}", "3 of all"},
		{"i18ncp", "{% i18ncp 'files' '%n item' '%n items' num %}", "3 items"},
		{"i18np_var", "{% i18np_var '%n item' '%n items' num as label %}<{{ label }}>", "<3 items>"},
		{"i18ncp_var", "{% i18ncp_var 'c' '%n item' '%n items' one as label %}{{ label }}", "1 item"},
		{"with_locale", "{% with_locale 'de_DE' %}{% i18n 'Today' %} {% i18np '%n item' '%n items' num %}{% endwith_locale %} {% i18n 'Today' %}", "Heute 3 Einträge Aujourd&#39;hui"},
		{"localized count", "{% with_locale 'de_DE' %}{% i18np '%Ln item' '%Ln items' 2000 %}{% endwith_locale %}", "2.000 items"},
	}

	e := template.New(template.WithLocalizer(newDictLocalizer()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, render(t, e, tt.src, data))
		})
	}
}

func TestI18nWithoutAutoescape(t *testing.T) {
	t.Parallel()

	e := template.New(template.WithLocalizer(newDictLocalizer()), template.WithAutoescape(false))
	assert.Equal(t, "Aujourd'hui", render(t, e, "{% i18n 'Today' %}", nil))
}

func TestContextLocalizerOverridesEngine(t *testing.T) {
	t.Parallel()

	e := template.New()
	tmpl, err := e.FromString("ctx", "{% i18n 'Today' %}")
	require.NoError(t, err)

	out, err := tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Today", out)

	c := template.NewContext(nil)
	c.SetLocalizer(newDictLocalizer())
	out, err = tmpl.RenderContext(c)
	require.NoError(t, err)
	assert.Equal(t, "Aujourd&#39;hui", out)
}

func TestWithLocaleUnknown(t *testing.T) {
	t.Parallel()

	e := template.New(template.WithLocalizer(newDictLocalizer()))
	tmpl, err := e.FromString("loc", "{% with_locale 'xx' %}x{% endwith_locale %}")
	require.NoError(t, err)
	_, err = tmpl.Render(nil)
	assert.True(t, template.IsKind(err, template.RenderError), "%v", err)

	plain := template.New()
	assert.Equal(t, "x", render(t, plain, "{% with_locale 'xx' %}x{% endwith_locale %}", nil))
}

func TestI18nSyntaxErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"{% i18np 'Today' %}",
		"{% i18ncp 'comment' 'Today' %}",
		"{% i18n_var 'Today' %}",
		"{% i18nc_var 'comment' 'Today' %}",
		"{% i18np_var '%n item' '%n items' num %}",
		"{% i18n %}",
		"{% i18n name %}",
		"{% i18nc 'only comment' %}",
		"{% with_locale %}{% endwith_locale %}",
	} {
		_, err := template.New().FromString("bad", src)
		assert.True(t, template.IsKind(err, template.TagSyntaxError), "%s: %v", src, err)
	}
}

func TestNullLocalizer(t *testing.T) {
	t.Parallel()

	var l template.NullLocalizer
	assert.Equal(t, "1 file", l.TranslatePlural("%n file", "%n files", "", 1))
	assert.Equal(t, "0 files", l.TranslatePlural("%n file", "%n files", "", 0))
	assert.Equal(t, "2 files in /tmp", l.TranslatePlural("%n file", "%n files in %1", "", 2, "/tmp"))
	assert.Equal(t, "0.50", l.LocalizeFloat(0.5))
	assert.Equal(t, "7 May 2005", l.LocalizeDate(time.Date(2005, 5, 7, 0, 0, 0, 0, time.UTC)))
}

func TestSubstituteArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    string
		args []any
		want string
	}{
		{"%1 and %2", []any{"a", "b"}, "a and b"},
		{"%2 before %1", []any{"a", "b"}, "b before a"},
		{"%1 %1", []any{"x"}, "x x"},
		{"%3 then %7", []any{"a", "b"}, "a then b"},
		{"%L1 items", []any{5}, "5 items"},
		{"%1 left", nil, "%1 left"},
		{"no placeholders", []any{"x"}, "no placeholders"},
		{"%0 and %1", []any{"x"}, "%0 and x"},
		{"%12%1", []any{"a", "b"}, "ba"},
		{"100%", []any{"x"}, "100%"},
		{"%1", []any{2.5}, "2.5"},
		{"%1", []any{time.Date(2005, 5, 7, 0, 0, 0, 0, time.UTC)}, "2005-05-07"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, template.SubstituteArgs(tt.s, tt.args...), tt.s)
	}
}

func TestReplacePercentN(t *testing.T) {
	t.Parallel()

	l := &dictLocalizer{locale: "de_DE"}
	assert.Equal(t, "1000 / 1.000", template.ReplacePercentN("%n / %Ln", 1000, l))
	assert.Equal(t, "1000 / 1000", template.ReplacePercentN("%n / %Ln", 1000, nil))
	assert.Equal(t, "50%", template.ReplacePercentN("%n%", 50, nil))
	assert.Equal(t, "%1 x", template.ReplacePercentN("%1 x", 3, nil))
}
