package catalog

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Rule names a catalog invariant.
type Rule string

const (
	RuleUniqueKey      Rule = "unique-key"
	RulePluralCount    Rule = "plural-count"
	RuleSingularForm   Rule = "singular-form"
	RuleUnfinishedText Rule = "unfinished-empty"
	RuleFinishedText   Rule = "finished-nonempty"
)

// Violation describes one message breaking a catalog invariant.
type Violation struct {
	Rule    Rule
	Context string
	Key     Key
	Detail  string
}

func (v *Violation) Error() string {
	id := fmt.Sprintf("%q", v.Key.Source)
	if v.Key.Comment != "" {
		id += fmt.Sprintf(" (%q)", v.Key.Comment)
	}
	return fmt.Sprintf("%s: %s: %s: %s", v.Rule, v.Context, id, v.Detail)
}

// Validate checks every message of c and returns nil or a
// *multierror.Error holding one *Violation per problem. Plural counts are
// only checked when the catalog language resolves to a known locale.
func Validate(c *Catalog) error {
	var result *multierror.Error

	want := 0
	if l, err := c.Locale(); err == nil {
		want = l.PluralCount()
	}

	for _, ctx := range c.Contexts {
		seen := make(map[Key]bool, len(ctx.Messages))
		for _, m := range ctx.Messages {
			k := m.Key()
			fail := func(rule Rule, format string, args ...any) {
				result = multierror.Append(result, &Violation{
					Rule: rule, Context: ctx.Name, Key: k, Detail: fmt.Sprintf(format, args...),
				})
			}

			if seen[k] {
				fail(RuleUniqueKey, "duplicate source/comment pair")
			}
			seen[k] = true

			if m.Numerus {
				if want > 0 && len(m.Translations) != want {
					fail(RulePluralCount, "has %d numerus forms, language %s needs %d", len(m.Translations), c.Language, want)
				}
			} else if len(m.Translations) != 1 {
				fail(RuleSingularForm, "singular message has %d translations", len(m.Translations))
			}

			switch m.Status {
			case Unfinished:
				if !m.IsEmpty() {
					fail(RuleUnfinishedText, "unfinished message carries translation text")
				}
			case Translated:
				for i, t := range m.Translations {
					if t == "" {
						fail(RuleFinishedText, "finished message has empty form #%d", i+1)
						break
					}
				}
			}
		}
	}
	return result.ErrorOrNil()
}

// Violations unpacks the error returned by Validate.
func Violations(err error) []*Violation {
	merr, ok := err.(*multierror.Error)
	if !ok || merr == nil {
		return nil
	}
	out := make([]*Violation, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		if v, ok := e.(*Violation); ok {
			out = append(out, v)
		}
	}
	return out
}
