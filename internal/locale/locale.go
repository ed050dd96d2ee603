// Package locale resolves catalog language codes to CLDR data: plural rules
// used to size and select numerus forms, and locale-aware number and date
// formatting.
package locale

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/cs"
	"github.com/go-playground/locales/da"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/el"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fi"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/he"
	"github.com/go-playground/locales/hu"
	"github.com/go-playground/locales/it"
	"github.com/go-playground/locales/ja"
	"github.com/go-playground/locales/ko"
	"github.com/go-playground/locales/lt"
	"github.com/go-playground/locales/nb"
	"github.com/go-playground/locales/nl"
	"github.com/go-playground/locales/pl"
	"github.com/go-playground/locales/pt"
	"github.com/go-playground/locales/ro"
	"github.com/go-playground/locales/ru"
	"github.com/go-playground/locales/sk"
	"github.com/go-playground/locales/sv"
	"github.com/go-playground/locales/tr"
	"github.com/go-playground/locales/uk"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

var (
	ErrEmptyLocale   = errors.New("locale: name cannot be empty")
	ErrUnknownLocale = errors.New("locale: unsupported language")
)

// sampleLimit bounds the integers sampled when deciding which CLDR cardinal
// categories a language can reach without fractions.
const sampleLimit = 1000

var (
	uniOnce sync.Once
	uni     *ut.UniversalTranslator

	cacheMu sync.RWMutex
	cache   = map[string]*Locale{}
)

func universal() *ut.UniversalTranslator {
	uniOnce.Do(func() {
		fallback := en.New()
		uni = ut.New(fallback,
			fallback, ar.New(), cs.New(), da.New(), de.New(), el.New(), es.New(),
			fi.New(), fr.New(), he.New(), hu.New(), it.New(), ja.New(), ko.New(),
			lt.New(), nb.New(), nl.New(), pl.New(), pt.New(), ro.New(), ru.New(),
			sk.New(), sv.New(), tr.New(), uk.New(), zh.New(),
		)
	})
	return uni
}

// Locale is a resolved catalog language.
type Locale struct {
	name  string
	tag   language.Tag
	trans locales.Translator
	forms []locales.PluralRule
}

// Lookup resolves names such as "de_DE", "fr-FR" or "ja". Region specific
// data falls back to the base language.
func Lookup(name string) (*Locale, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyLocale
	}
	cacheMu.RLock()
	l, ok := cache[name]
	cacheMu.RUnlock()
	if ok {
		return l, nil
	}

	tag, err := language.Parse(name)
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownLocale, "%s: %v", name, err)
	}
	base, _ := tag.Base()
	candidates := []string{base.String()}
	if region, conf := tag.Region(); conf == language.Exact {
		candidates = append([]string{base.String() + "_" + region.String()}, candidates...)
	}
	trans, found := universal().FindTranslator(candidates...)
	if !found {
		return nil, errors.Wrap(ErrUnknownLocale, name)
	}

	l = &Locale{name: name, tag: tag, trans: trans}
	l.forms = reachableForms(trans)

	cacheMu.Lock()
	cache[name] = l
	cacheMu.Unlock()
	return l, nil
}

// MustLookup is Lookup for package-level fixtures and tests.
func MustLookup(name string) *Locale {
	l, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return l
}

// reachableForms keeps the CLDR cardinal categories that some non-negative
// integer selects, in CLDR order. Categories reserved for fractions are not
// numerus forms in a TS catalog.
func reachableForms(t locales.Translator) []locales.PluralRule {
	seen := map[locales.PluralRule]bool{}
	for n := 0; n <= sampleLimit; n++ {
		seen[t.CardinalPluralRule(float64(n), 0)] = true
	}
	var out []locales.PluralRule
	for _, r := range t.PluralsCardinal() {
		if seen[r] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = []locales.PluralRule{locales.PluralRuleOther}
	}
	return out
}

func (l *Locale) Name() string { return l.name }

func (l *Locale) Tag() language.Tag { return l.tag }

// PluralCount is the number of numerus forms a plural message carries.
func (l *Locale) PluralCount() int { return len(l.forms) }

// PluralIndex selects the numerus form for n.
func (l *Locale) PluralIndex(n int) int {
	if n < 0 {
		n = -n
	}
	rule := l.trans.CardinalPluralRule(float64(n), 0)
	for i, r := range l.forms {
		if r == rule {
			return i
		}
	}
	return len(l.forms) - 1
}

// Categories returns lowercase CLDR category names ("one", "other", ...) in
// numerus form order.
func (l *Locale) Categories() []string {
	out := make([]string, len(l.forms))
	for i, r := range l.forms {
		out[i] = strings.ToLower(r.String())
	}
	return out
}

// FormatNumber renders num with the given number of decimals using the
// locale's grouping and decimal separators.
func (l *Locale) FormatNumber(num float64, decimals uint64) string {
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return ""
	}
	return l.trans.FmtNumber(num, decimals)
}

// FormatDate renders t in the locale's short date format.
func (l *Locale) FormatDate(t time.Time) string {
	return l.trans.FmtDateShort(t)
}

// FormatDateTime renders t as short date followed by short time.
func (l *Locale) FormatDateTime(t time.Time) string {
	return l.trans.FmtDateShort(t) + " " + l.trans.FmtTimeShort(t)
}
