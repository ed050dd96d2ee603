package template_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/steveire/grantlee/internal/template"
)

func TestExtract(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want []template.Message
	}{
		{
			name: "localized literal",
			src:  `<p>{{ _("Birthday") }}</p>`,
			want: []template.Message{{Source: "Birthday", Line: 1}},
		},
		{
			name: "literal in filter argument",
			src:  "{{ _('Hello')|upper }}\n{{ names|join:_(\"and\") }}",
			want: []template.Message{{Source: "Hello", Line: 1}, {Source: "and", Line: 2}},
		},
		{
			name: "i18n with arguments",
			src:  `{% i18n "Today is %1" _("Monday") %}`,
			want: []template.Message{{Source: "Today is %1", Line: 1}, {Source: "Monday", Line: 1}},
		},
		{
			name: "i18nc",
			src:  `{% i18nc "Name of a Book" "Name" %}`,
			want: []template.Message{{Source: "Name", Comment: "Name of a Book", Line: 1}},
		},
		{
			name: "i18np",
			src:  "\n\n{% i18np \"%n person\" \"%n People\" count %}",
			want: []template.Message{{Source: "%n person", Plural: "%n People", Numerus: true, Line: 3}},
		},
		{
			name: "i18np without plural text",
			src:  `{% i18np "%n People" count %}`,
			want: []template.Message{{Source: "%n People", Plural: "%n People", Numerus: true, Line: 1}},
		},
		{
			name: "i18ncp_var",
			src:  `{% i18ncp_var "logged in" "%n person" "%n people" n as label %}`,
			want: []template.Message{{Source: "%n person", Plural: "%n people", Comment: "logged in", Numerus: true, Line: 1}},
		},
		{
			name: "comments and text are skipped",
			src:  `{# {{ _("hidden") }} #} _("plain text") {{ my_("x") }}`,
		},
		{
			name: "dynamic source is skipped",
			src:  `{% i18n message %}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, template.Extract(tt.src)); diff != "" {
				t.Errorf("Extract mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
