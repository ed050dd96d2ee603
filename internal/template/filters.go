package template

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/yuin/goldmark"
)

// Filter transforms a value. arg is nil when the filter is used without an
// argument; autoescape tells filters that produce markup whether to escape
// their input.
type Filter func(in, arg any, autoescape bool) (any, error)

func defaultFilters() map[string]Filter {
	return map[string]Filter{
		"add":              addFilter,
		"addslashes":       stringFilter(addSlashes, true),
		"append":           appendFilter,
		"camelcase":        stringFilter(strcase.ToCamel, false),
		"capfirst":         stringFilter(capFirst, true),
		"center":           justifyFilter(center),
		"cut":              cutFilter,
		"date":             dateFilter,
		"default":          defaultFilter,
		"default_if_none":  defaultIfNoneFilter,
		"dictsort":         dictSortFilter(false),
		"dictsortreversed": dictSortFilter(true),
		"divisibleby":      divisibleByFilter,
		"escape":           escapeFilter,
		"first":            firstFilter,
		"floatformat":      floatFormatFilter,
		"force_escape":     forceEscapeFilter,
		"join":             joinFilter,
		"kebabcase":        stringFilter(strcase.ToKebab, false),
		"last":             lastFilter,
		"length":           lengthFilter,
		"length_is":        lengthIsFilter,
		"linebreaks":       lineBreaksFilter,
		"linebreaksbr":     lineBreaksBrFilter,
		"linenumbers":      lineNumbersFilter,
		"ljust":            justifyFilter(ljust),
		"lower":            stringFilter(strings.ToLower, true),
		"lowercamelcase":   stringFilter(strcase.ToLowerCamel, false),
		"make_list":        makeListFilter,
		"markdown":         markdownFilter,
		"pluralize":        pluralizeFilter,
		"removetags":       removeTagsFilter,
		"rjust":            justifyFilter(rjust),
		"safe":             safeFilter,
		"safeseq":          safeSeqFilter,
		"slice":            sliceFilter,
		"slugify":          stringFilter(slugify, true),
		"snakecase":        stringFilter(strcase.ToSnake, false),
		"stringformat":     stringFormatFilter,
		"striptags":        stripTagsFilter,
		"title":            stringFilter(title, true),
		"truncatewords":    truncateWordsFilter,
		"upper":            stringFilter(strings.ToUpper, true),
		"wordcount":        wordCountFilter,
		"yesno":            yesNoFilter,
	}
}

// stringFilter lifts a string function into a Filter. keepSafe marks
// functions that cannot introduce markup, so safe input stays safe.
func stringFilter(fn func(string) string, keepSafe bool) Filter {
	return func(in, _ any, _ bool) (any, error) {
		out := fn(toString(in))
		if keepSafe {
			return withSafety(in, out), nil
		}
		return out, nil
	}
}

func appendFilter(in, arg any, _ bool) (any, error) {
	out := toString(in) + toString(arg)
	if isSafe(in) && (arg == nil || isSafe(arg)) {
		return SafeString(out), nil
	}
	return out, nil
}

func addFilter(in, arg any, _ bool) (any, error) {
	switch {
	case isInteger(in) && isInteger(arg):
		return cast.ToInt64(in) + cast.ToInt64(arg), nil
	case isNumber(in) && isNumber(arg):
		return cast.ToFloat64(in) + cast.ToFloat64(arg), nil
	case isStringLike(in) || isStringLike(arg):
		if a, err := strconv.ParseInt(toString(in), 10, 64); err == nil {
			if b, err := strconv.ParseInt(toString(arg), 10, 64); err == nil {
				return a + b, nil
			}
		}
		return toString(in) + toString(arg), nil
	}
	if a, b := iterate(in), iterate(arg); a != nil || b != nil {
		return append(append([]any{}, a...), b...), nil
	}
	return in, nil
}

var slashEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `'`, `\'`)

func addSlashes(s string) string { return slashEscaper.Replace(s) }

func capFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func title(s string) string {
	var b strings.Builder
	prev := ' '
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.IsLetter(prev) && prev != '\'' {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		prev = r
	}
	return b.String()
}

func justifyFilter(fn func(s string, width int) string) Filter {
	return func(in, arg any, _ bool) (any, error) {
		width, err := cast.ToIntE(toArgValue(arg))
		if err != nil {
			return nil, errors.Wrap(err, "width")
		}
		return withSafety(in, fn(toString(in), width)), nil
	}
}

func padding(s string, width int) int {
	return max(0, width-utf8.RuneCountInString(s))
}

func ljust(s string, width int) string { return s + strings.Repeat(" ", padding(s, width)) }

func rjust(s string, width int) string { return strings.Repeat(" ", padding(s, width)) + s }

func center(s string, width int) string {
	pad := padding(s, width)
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

func cutFilter(in, arg any, _ bool) (any, error) {
	return strings.ReplaceAll(toString(in), toString(arg), ""), nil
}

func dateFilter(in, arg any, _ bool) (any, error) {
	t, ok := in.(time.Time)
	if !ok {
		var err error
		if t, err = cast.ToTimeE(in); err != nil {
			return "", nil
		}
	}
	format := toString(arg)
	if format == "" {
		format = "F j, Y"
	}
	return formatDate(t, format), nil
}

func defaultFilter(in, arg any, _ bool) (any, error) {
	if truthy(in) {
		return in, nil
	}
	return arg, nil
}

func defaultIfNoneFilter(in, arg any, _ bool) (any, error) {
	if in == nil {
		return arg, nil
	}
	return in, nil
}

func dictSortFilter(reverse bool) Filter {
	return func(in, arg any, _ bool) (any, error) {
		items := append([]any(nil), iterate(in)...)
		path := strings.Split(toString(arg), ".")
		key := func(v any) any {
			for _, part := range path {
				v, _, _ = resolveAttr(v, part)
			}
			return v
		}
		sort.SliceStable(items, func(i, j int) bool {
			a, b := key(items[i]), key(items[j])
			if reverse {
				a, b = b, a
			}
			if c, ok := compareValues(a, b); ok {
				return c < 0
			}
			return toString(a) < toString(b)
		})
		return items, nil
	}
}

func divisibleByFilter(in, arg any, _ bool) (any, error) {
	d := cast.ToInt64(toArgValue(arg))
	if d == 0 {
		return false, nil
	}
	return cast.ToInt64(toArgValue(in))%d == 0, nil
}

func escapeFilter(in, _ any, _ bool) (any, error) {
	if isSafe(in) {
		return in, nil
	}
	return SafeString(Escape(toString(in))), nil
}

func forceEscapeFilter(in, _ any, _ bool) (any, error) {
	return SafeString(Escape(toString(in))), nil
}

func firstFilter(in, _ any, _ bool) (any, error) {
	if items := iterate(in); len(items) > 0 {
		return items[0], nil
	}
	return "", nil
}

func lastFilter(in, _ any, _ bool) (any, error) {
	if items := iterate(in); len(items) > 0 {
		return items[len(items)-1], nil
	}
	return "", nil
}

// floatFormatFilter rounds to arg decimals (default -1). A negative
// precision drops the decimals when the value is whole.
func floatFormatFilter(in, arg any, _ bool) (any, error) {
	f, err := cast.ToFloat64E(toArgValue(in))
	if err != nil {
		return "", nil
	}
	prec := -1
	if arg != nil {
		if prec, err = cast.ToIntE(toArgValue(arg)); err != nil {
			return nil, errors.Wrap(err, "precision")
		}
	}
	if prec < 0 {
		if f == math.Trunc(f) {
			return strconv.FormatFloat(f, 'f', 0, 64), nil
		}
		prec = -prec
	}
	return strconv.FormatFloat(f, 'f', prec, 64), nil
}

// toArgValue turns numeric strings into numbers for filters that need one.
func toArgValue(v any) any {
	if isStringLike(v) {
		s := strings.TrimSpace(toString(v))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
	return v
}

func joinFilter(in, arg any, autoescape bool) (any, error) {
	esc := func(v any) string {
		if autoescape && !isSafe(v) {
			return Escape(toString(v))
		}
		return toString(v)
	}
	items := iterate(in)
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = esc(v)
	}
	return SafeString(strings.Join(parts, esc(arg))), nil
}

func lengthFilter(in, _ any, _ bool) (any, error) { return length(in), nil }

func lengthIsFilter(in, arg any, _ bool) (any, error) {
	return length(in) == cast.ToInt(toArgValue(arg)), nil
}

func escapeUnlessSafe(in any, autoescape bool) string {
	if autoescape && !isSafe(in) {
		return Escape(toString(in))
	}
	return toString(in)
}

func lineBreaksBrFilter(in, _ any, autoescape bool) (any, error) {
	s := strings.ReplaceAll(escapeUnlessSafe(in, autoescape), "\r\n", "\n")
	return SafeString(strings.ReplaceAll(s, "\n", "<br />")), nil
}

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

func lineBreaksFilter(in, _ any, autoescape bool) (any, error) {
	s := strings.ReplaceAll(escapeUnlessSafe(in, autoescape), "\r\n", "\n")
	var paras []string
	for _, p := range paragraphBreak.Split(s, -1) {
		paras = append(paras, "<p>"+strings.ReplaceAll(p, "\n", "<br />")+"</p>")
	}
	return SafeString(strings.Join(paras, "\n\n")), nil
}

func lineNumbersFilter(in, _ any, autoescape bool) (any, error) {
	lines := strings.Split(toString(in), "\n")
	width := len(strconv.Itoa(len(lines)))
	for i, l := range lines {
		if autoescape && !isSafe(in) {
			l = Escape(l)
		}
		lines[i] = fmt.Sprintf("%0*d. %s", width, i+1, l)
	}
	return SafeString(strings.Join(lines, "\n")), nil
}

func makeListFilter(in, _ any, _ bool) (any, error) {
	return iterate(toString(in)), nil
}

var markdown = goldmark.New()

// markdownFilter renders CommonMark. Raw HTML in the input is omitted, so
// the output is safe.
func markdownFilter(in, _ any, _ bool) (any, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(toString(in)), &buf); err != nil {
		return nil, errors.Wrap(err, "markdown")
	}
	return SafeString(buf.String()), nil
}

// pluralizeFilter returns the plural suffix when the count is not 1. arg
// is "s" by default, or "singular,plural" such as "y,ies".
func pluralizeFilter(in, arg any, _ bool) (any, error) {
	singular, plural := "", "s"
	if arg != nil {
		parts := strings.Split(toString(arg), ",")
		switch len(parts) {
		case 1:
			plural = parts[0]
		case 2:
			singular, plural = parts[0], parts[1]
		default:
			return "", nil
		}
	}
	n := 0
	if isNumber(in) || isStringLike(in) {
		n = cast.ToInt(toArgValue(in))
	} else {
		n = length(in)
	}
	if n == 1 {
		return singular, nil
	}
	return plural, nil
}

func removeTagsFilter(in, arg any, _ bool) (any, error) {
	out := toString(in)
	for _, tag := range strings.Fields(toString(arg)) {
		re, err := regexp.Compile(`(?i)</?` + regexp.QuoteMeta(tag) + `(\s[^>]*)?/?>`)
		if err != nil {
			return nil, err
		}
		out = re.ReplaceAllString(out, "")
	}
	return withSafety(in, out), nil
}

func safeFilter(in, _ any, _ bool) (any, error) {
	if isSafe(in) {
		return in, nil
	}
	return SafeString(toString(in)), nil
}

func safeSeqFilter(in, _ any, _ bool) (any, error) {
	items := iterate(in)
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = SafeString(toString(v))
	}
	return out, nil
}

// sliceFilter applies a "start:end" slice to lists and strings. Either
// bound may be omitted or negative; a lone number is the end bound.
func sliceFilter(in, arg any, _ bool) (any, error) {
	spec := toString(arg)
	startRaw, endRaw, ok := strings.Cut(spec, ":")
	if !ok {
		startRaw, endRaw = "", spec
	}
	items := iterate(in)
	bound := func(raw string, def int) (int, error) {
		if raw == "" {
			return def, nil
		}
		i, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errors.Errorf("bad slice %q", spec)
		}
		if i < 0 {
			i += len(items)
		}
		return min(max(i, 0), len(items)), nil
	}
	start, err := bound(startRaw, 0)
	if err != nil {
		return nil, err
	}
	end, err := bound(endRaw, len(items))
	if err != nil {
		return nil, err
	}
	if end < start {
		end = start
	}
	part := items[start:end]
	if isStringLike(in) {
		var b strings.Builder
		for _, r := range part {
			b.WriteString(r.(string))
		}
		return withSafety(in, b.String()), nil
	}
	return part, nil
}

var nonSlug = regexp.MustCompile(`[^\w\s-]`)
var slugSpace = regexp.MustCompile(`[-\s]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(nonSlug.ReplaceAllString(s, "")))
	return slugSpace.ReplaceAllString(s, "-")
}

// stringFormatFilter formats the value with a printf verb without the
// leading percent sign, e.g. "05d" or ".2f".
func stringFormatFilter(in, arg any, _ bool) (any, error) {
	return fmt.Sprintf("%"+toString(arg), toArgValue(in)), nil
}

var stripPolicy = bluemonday.StrictPolicy()

func stripTagsFilter(in, _ any, _ bool) (any, error) {
	return html.UnescapeString(stripPolicy.Sanitize(toString(in))), nil
}

func truncateWordsFilter(in, arg any, _ bool) (any, error) {
	n, err := cast.ToIntE(toArgValue(arg))
	if err != nil {
		return nil, errors.Wrap(err, "word count")
	}
	words := strings.Fields(toString(in))
	if n < 0 || len(words) <= n {
		return strings.Join(words, " "), nil
	}
	return strings.Join(words[:n], " ") + " ...", nil
}

func wordCountFilter(in, _ any, _ bool) (any, error) {
	return len(strings.Fields(toString(in))), nil
}

// yesNoFilter maps true, false and nil to the comma separated choices in
// arg, "yes,no,maybe" by default. With two choices nil maps to the second.
func yesNoFilter(in, arg any, _ bool) (any, error) {
	choices := "yes,no,maybe"
	if arg != nil {
		choices = toString(arg)
	}
	parts := strings.Split(choices, ",")
	if len(parts) < 2 {
		return in, nil
	}
	switch {
	case in == nil || (reflect.ValueOf(in).Kind() == reflect.Pointer && reflect.ValueOf(in).IsNil()):
		if len(parts) > 2 {
			return parts[2], nil
		}
		return parts[1], nil
	case truthy(in):
		return parts[0], nil
	}
	return parts[1], nil
}
