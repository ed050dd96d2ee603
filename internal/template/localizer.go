package template

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Localizer translates template strings and formats values marked with
// _() for the reader's locale.
//
// TranslatePlural takes the count as the first argument; the remaining
// arguments fill %1, %2 and so on.
type Localizer interface {
	CurrentLocale() string
	Translate(source, comment string, args ...any) string
	TranslatePlural(source, plural, comment string, args ...any) string
	LocalizeNumber(n int64) string
	LocalizeFloat(f float64) string
	LocalizeDate(t time.Time) string
	LocalizeDateTime(t time.Time) string
}

// LocaleSwitcher is implemented by localizers that can serve another
// locale. The with_locale tag uses it.
type LocaleSwitcher interface {
	ForLocale(name string) (Localizer, error)
}

// NullLocalizer leaves strings untranslated and formats values without
// locale conventions.
type NullLocalizer struct{}

func (NullLocalizer) CurrentLocale() string { return "" }

func (NullLocalizer) Translate(source, _ string, args ...any) string {
	return SubstituteArgs(source, args...)
}

func (l NullLocalizer) TranslatePlural(source, plural, _ string, args ...any) string {
	n, rest := PluralCount(args)
	text := source
	if n != 1 {
		text = plural
	}
	return SubstituteArgs(ReplacePercentN(text, n, l), rest...)
}

func (NullLocalizer) LocalizeNumber(n int64) string { return strconv.FormatInt(n, 10) }

func (NullLocalizer) LocalizeFloat(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func (NullLocalizer) LocalizeDate(t time.Time) string { return t.Format("2 January 2006") }

func (NullLocalizer) LocalizeDateTime(t time.Time) string {
	return t.Format("2 January 2006 15:04:05")
}

// PluralCount splits the count off a plural argument list.
func PluralCount(args []any) (int, []any) {
	if len(args) == 0 {
		return 0, nil
	}
	return cast.ToInt(args[0]), args[1:]
}

// ReplacePercentN substitutes n for every %n in s, and the localized form
// of n for every %Ln when l is not nil.
func ReplacePercentN(s string, n int, l Localizer) string {
	if !strings.Contains(s, "%") {
		return s
	}
	plain := strconv.Itoa(n)
	localized := plain
	if l != nil {
		localized = l.LocalizeNumber(int64(n))
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '%' && i+1 < len(s) && s[i+1] == 'n':
			b.WriteString(plain)
			i++
		case s[i] == '%' && i+2 < len(s) && s[i+1] == 'L' && s[i+2] == 'n':
			b.WriteString(localized)
			i += 2
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// SubstituteArgs fills numbered placeholders the way Qt's QString::arg
// does: each argument in turn replaces every occurrence of the lowest
// numbered %1..%99 (or %L1..%L99) left in the string.
func SubstituteArgs(s string, args ...any) string {
	for _, arg := range args {
		low := lowestPlaceholder(s)
		if low < 0 {
			break
		}
		s = replacePlaceholder(s, low, FormatArg(arg))
	}
	return s
}

// FormatArg renders a translation argument that was not localized.
func FormatArg(v any) string {
	switch x := v.(type) {
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02T15:04:05")
	case float32, float64:
		return strconv.FormatFloat(cast.ToFloat64(x), 'g', -1, 64)
	}
	return toString(v)
}

// placeholderAt parses a %N or %LN placeholder at s[i], returning its
// number and width.
func placeholderAt(s string, i int) (num, width int) {
	if s[i] != '%' {
		return -1, 0
	}
	j := i + 1
	if j < len(s) && s[j] == 'L' {
		j++
	}
	start := j
	for j < len(s) && j-start < 2 && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == start {
		return -1, 0
	}
	n, _ := strconv.Atoi(s[start:j])
	if n == 0 {
		return -1, 0
	}
	return n, j - i
}

func lowestPlaceholder(s string) int {
	low := -1
	for i := 0; i < len(s); i++ {
		if n, w := placeholderAt(s, i); w > 0 {
			if low < 0 || n < low {
				low = n
			}
			i += w - 1
		}
	}
	return low
}

func replacePlaceholder(s string, num int, value string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if n, w := placeholderAt(s, i); w > 0 {
			if n == num {
				b.WriteString(value)
			} else {
				b.WriteString(s[i : i+w])
			}
			i += w - 1
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// localize applies _() to a resolved value: strings are translated, numbers
// and times are formatted for the locale, anything else passes through.
func localize(l Localizer, v any) any {
	switch x := v.(type) {
	case string:
		return l.Translate(x, "")
	case SafeString:
		return l.Translate(string(x), "")
	case float32:
		return l.LocalizeFloat(float64(x))
	case float64:
		return l.LocalizeFloat(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return l.LocalizeDate(x)
		}
		return l.LocalizeDateTime(x)
	}
	if isInteger(v) {
		return l.LocalizeNumber(cast.ToInt64(v))
	}
	return v
}
