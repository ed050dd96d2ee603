// Package prompt renders LLM prompts with the template engine. Stored
// templates override the builtin ones and may extend or include them as
// "builtin/<type>/<role>".
package prompt

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
	"github.com/steveire/grantlee/internal/template"
)

type Renderer struct {
	Templates ports.TemplateRepository
	engine    *template.Engine
}

func New(templates ports.TemplateRepository) *Renderer {
	builtins := template.NewInMemoryLoader(map[string]string{
		BuiltinName(domain.PromptTranslateSingle, domain.RoleSystem): singleSystem,
		BuiltinName(domain.PromptTranslatePlural, domain.RoleSystem): pluralSystem,
		BuiltinName(domain.PromptTranslateSingle, domain.RoleUser):   user,
		BuiltinName(domain.PromptTranslatePlural, domain.RoleUser):   user,
	})
	e := template.New(
		template.WithLoader(builtins),
		template.WithAutoescape(false),
		template.WithCache(16),
	)
	return &Renderer{Templates: templates, engine: e}
}

// BuiltinName is the loader name of a builtin prompt.
func BuiltinName(typ, role string) string { return "builtin/" + typ + "/" + role }

func (r *Renderer) Render(ctx context.Context, scope string, refID *int64, typ, role string, data ports.PromptData) (string, error) {
	var stored *domain.Template
	if r.Templates != nil {
		var err error
		if stored, err = r.Templates.GetEffective(ctx, scope, refID, typ, role); err != nil {
			return "", errors.Wrap(err, "load prompt template")
		}
	}
	var (
		tpl *template.Template
		err error
	)
	if stored != nil && strings.TrimSpace(stored.Body) != "" {
		tpl, err = r.engine.FromString(stored.Scope+"/"+typ+"/"+role, stored.Body)
	} else {
		tpl, err = r.engine.GetTemplate(BuiltinName(typ, role))
	}
	if err != nil {
		return "", err
	}
	out, err := tpl.Render(data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

const singleSystem = `You are a professional software localization translator. ` +
	`Translate the user's message from {{ SrcLang }} to {{ TgtLang }}.` +
	`{% if Placeholders %} Keep these placeholders exactly as written: {{ Placeholders|join:", " }}.{% endif %}` +
	` Do not change leading or trailing whitespace. Return only JSON: {"translation":"..."}.`

const pluralSystem = `You are a professional software localization translator. ` +
	`Translate the user's message from {{ SrcLang }} to {{ TgtLang }}. ` +
	`It is a plural message: %n stands for the count. ` +
	`Write {{ Categories|length }} form{{ Categories|length|pluralize }}, one for each plural category of {{ TgtLang }} in this order: {{ Categories|join:", " }}.` +
	`{% if Placeholders %} Keep these placeholders exactly as written: {{ Placeholders|join:", " }}.{% endif %}` +
	` Return only JSON: {"forms":["..."]}.`

const user = `{% if Project %}project: {{ Project }}
{% endif %}{% if FilePath %}file: {{ FilePath }}
{% endif %}{% if Context %}context: {{ Context }}
{% endif %}{% if Comment %}disambiguation: {{ Comment }}
{% endif %}{% if OldSource %}previous source: {{ OldSource }}
{% endif %}source: {{ Text }}`
