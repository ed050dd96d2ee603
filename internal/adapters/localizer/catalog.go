// Package localizer backs the template i18n tags with translation
// catalogs: Qt Linguist TS files or go-i18n message bundles.
package localizer

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/template"
)

var ErrNoCatalog = errors.New("localizer: no catalog for locale")

// Option configures a Catalog localizer.
type Option func(*Catalog)

// WithContext sets the TS context messages are looked up in. The default
// is catalog.DefaultContext.
func WithContext(name string) Option {
	return func(c *Catalog) { c.context = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// Catalog translates through TS catalogs keyed by language. Missing and
// unfinished messages fall back to the source text.
type Catalog struct {
	current  string
	catalogs map[string]*catalog.Catalog
	loc      *locale.Locale
	context  string
	log      *zap.Logger
}

// NewCatalog returns a localizer for current, which must be the Language
// of one of catalogs.
func NewCatalog(current string, catalogs []*catalog.Catalog, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		catalogs: map[string]*catalog.Catalog{},
		context:  catalog.DefaultContext,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, cat := range catalogs {
		c.catalogs[normalize(cat.Language)] = cat
	}
	if err := c.use(current); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalogs parses TS files from disk.
func LoadCatalogs(paths ...string) ([]*catalog.Catalog, error) {
	out := make([]*catalog.Catalog, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, errors.Wrap(err, "localizer: open catalog")
		}
		cat, err := catalog.Parse(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "localizer: %s", p)
		}
		out = append(out, cat)
	}
	return out, nil
}

func (c *Catalog) use(name string) error {
	if _, ok := c.catalogs[normalize(name)]; !ok {
		return errors.Wrap(ErrNoCatalog, name)
	}
	c.current = name
	c.loc = nil
	if l, err := locale.Lookup(name); err == nil {
		c.loc = l
	} else {
		c.log.Debug("locale has no CLDR data, formatting without it", zap.String("locale", name), zap.Error(err))
	}
	return nil
}

func (c *Catalog) cat() *catalog.Catalog { return c.catalogs[normalize(c.current)] }

func (c *Catalog) CurrentLocale() string { return c.current }

// ForLocale returns a localizer sharing the catalogs, switched to name.
func (c *Catalog) ForLocale(name string) (template.Localizer, error) {
	other := *c
	if err := other.use(name); err != nil {
		return nil, err
	}
	return &other, nil
}

func (c *Catalog) Translate(source, comment string, args ...any) string {
	text := c.cat().Translate(c.context, source, comment)
	if text == "" {
		c.log.Debug("untranslated", zap.String("locale", c.current), zap.String("source", source), zap.String("comment", comment))
		text = source
	}
	return template.SubstituteArgs(text, args...)
}

// TranslatePlural takes the count as args[0]. Without a finished
// translation the source or plural text is chosen by n.
func (c *Catalog) TranslatePlural(source, plural, comment string, args ...any) string {
	n, rest := template.PluralCount(args)
	text := c.cat().TranslatePlural(c.context, source, comment, n)
	if text == "" {
		c.log.Debug("untranslated", zap.String("locale", c.current), zap.String("source", source), zap.String("comment", comment))
		text = source
		if n != 1 {
			text = plural
		}
	}
	return template.SubstituteArgs(template.ReplacePercentN(text, n, c), rest...)
}

func (c *Catalog) LocalizeNumber(n int64) string {
	if c.loc == nil {
		return template.NullLocalizer{}.LocalizeNumber(n)
	}
	return c.loc.FormatNumber(float64(n), 0)
}

func (c *Catalog) LocalizeFloat(f float64) string {
	if c.loc == nil {
		return template.NullLocalizer{}.LocalizeFloat(f)
	}
	return c.loc.FormatNumber(f, 2)
}

func (c *Catalog) LocalizeDate(t time.Time) string {
	if c.loc == nil {
		return template.NullLocalizer{}.LocalizeDate(t)
	}
	return c.loc.FormatDate(t)
}

func (c *Catalog) LocalizeDateTime(t time.Time) string {
	if c.loc == nil {
		return template.NullLocalizer{}.LocalizeDateTime(t)
	}
	return c.loc.FormatDateTime(t)
}

// normalize folds "de-DE" and "de_de" onto "de_DE" for catalog lookup.
func normalize(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
	lang, region, ok := strings.Cut(name, "_")
	if !ok {
		return strings.ToLower(lang)
	}
	return strings.ToLower(lang) + "_" + strings.ToUpper(region)
}
