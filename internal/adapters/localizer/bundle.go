package localizer

import (
	"encoding/json"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/template"
)

// NewMessageBundle returns a go-i18n bundle that reads TOML, YAML and JSON
// message files.
func NewMessageBundle(sourceLanguage string) (*i18n.Bundle, error) {
	tag, err := language.Parse(sourceLanguage)
	if err != nil {
		return nil, errors.Wrapf(err, "localizer: source language %q", sourceLanguage)
	}
	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	b.RegisterUnmarshalFunc("yml", yaml.Unmarshal)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)
	return b, nil
}

// LoadMessageFiles adds message files such as "de-DE.toml" to b.
func LoadMessageFiles(b *i18n.Bundle, paths ...string) error {
	for _, p := range paths {
		if _, err := b.LoadMessageFile(p); err != nil {
			return errors.Wrapf(err, "localizer: load %s", p)
		}
	}
	return nil
}

// Bundle translates through a go-i18n bundle. Message IDs follow
// catalog.FlatID, so bundles exported from TS catalogs resolve the same
// strings. Message text keeps the %n and %1 placeholders.
type Bundle struct {
	bundle *i18n.Bundle
	lang   string
	loc    *locale.Locale
	l      *i18n.Localizer
	log    *zap.Logger
}

func NewBundle(b *i18n.Bundle, lang string, log *zap.Logger) *Bundle {
	if log == nil {
		log = zap.NewNop()
	}
	out := &Bundle{bundle: b, lang: lang, l: i18n.NewLocalizer(b, lang), log: log}
	if l, err := locale.Lookup(lang); err == nil {
		out.loc = l
	}
	return out
}

func (b *Bundle) CurrentLocale() string { return b.lang }

func (b *Bundle) ForLocale(name string) (template.Localizer, error) {
	if _, err := language.Parse(name); err != nil {
		return nil, errors.Wrapf(err, "localizer: locale %q", name)
	}
	return NewBundle(b.bundle, name, b.log), nil
}

func (b *Bundle) localize(id string, count any) (string, bool) {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if count != nil {
		cfg.PluralCount = count
	}
	msg, tag, err := b.l.LocalizeWithTag(cfg)
	if err != nil || msg == "" {
		b.log.Debug("untranslated", zap.String("locale", b.lang), zap.String("id", id), zap.Error(err))
		return "", false
	}
	// go-i18n answers with the default language when the requested one
	// lacks the message; treat that as untranslated.
	if base, _ := tag.Base(); !b.sameBase(base) {
		return "", false
	}
	return msg, true
}

func (b *Bundle) sameBase(base language.Base) bool {
	tag, err := language.Parse(b.lang)
	if err != nil {
		return false
	}
	want, _ := tag.Base()
	return want == base
}

func (b *Bundle) Translate(source, comment string, args ...any) string {
	text, ok := b.localize(catalog.FlatID(source, comment), nil)
	if !ok {
		text = source
	}
	return template.SubstituteArgs(text, args...)
}

func (b *Bundle) TranslatePlural(source, plural, comment string, args ...any) string {
	n, rest := template.PluralCount(args)
	text, ok := b.localize(catalog.FlatID(source, comment), n)
	if !ok {
		text = source
		if n != 1 {
			text = plural
		}
	}
	return template.SubstituteArgs(template.ReplacePercentN(text, n, b), rest...)
}

func (b *Bundle) LocalizeNumber(n int64) string {
	if b.loc == nil {
		return template.NullLocalizer{}.LocalizeNumber(n)
	}
	return b.loc.FormatNumber(float64(n), 0)
}

func (b *Bundle) LocalizeFloat(f float64) string {
	if b.loc == nil {
		return template.NullLocalizer{}.LocalizeFloat(f)
	}
	return b.loc.FormatNumber(f, 2)
}

func (b *Bundle) LocalizeDate(t time.Time) string {
	if b.loc == nil {
		return template.NullLocalizer{}.LocalizeDate(t)
	}
	return b.loc.FormatDate(t)
}

func (b *Bundle) LocalizeDateTime(t time.Time) string {
	if b.loc == nil {
		return template.NullLocalizer{}.LocalizeDateTime(t)
	}
	return b.loc.FormatDateTime(t)
}
