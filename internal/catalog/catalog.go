// Package catalog models Qt Linguist translation catalogs (TS files): parsing,
// serialization, validation, lookup, re-extraction merges and diffs.
package catalog

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/locale"
)

// DefaultContext is the context name Grantlee templates translate in.
const DefaultContext = "GR_FILENAME"

// DefaultVersion is written when a catalog carries no version attribute.
const DefaultVersion = "2.1"

var (
	ErrNotTS          = errors.New("catalog: document root is not <TS>")
	ErrEmptyContext   = errors.New("catalog: context name cannot be empty")
	ErrDuplicateKey   = errors.New("catalog: duplicate message key")
	ErrUnknownMessage = errors.New("catalog: message not found")
)

// Status is the completion state of a message's translation.
type Status int

const (
	Translated Status = iota
	Unfinished
	// Obsolete messages are no longer extracted from sources; their
	// translation is kept for reuse.
	Obsolete
	// Vanished is the TS 2.1 spelling of an obsolete message whose source
	// location disappeared.
	Vanished
)

func (s Status) String() string {
	switch s {
	case Translated:
		return "translated"
	case Unfinished:
		return "unfinished"
	case Obsolete:
		return "obsolete"
	case Vanished:
		return "vanished"
	default:
		return "unknown"
	}
}

// ParseStatus maps the value of a <translation type=".."> attribute; the
// empty string is Translated.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "translated", "finished":
		return Translated, nil
	case "unfinished":
		return Unfinished, nil
	case "obsolete":
		return Obsolete, nil
	case "vanished":
		return Vanished, nil
	}
	return Translated, errors.Errorf("catalog: unknown translation type %q", s)
}

// attr is the translation type attribute value written for s.
func (s Status) attr() string {
	if s == Translated {
		return ""
	}
	return s.String()
}

// Retired reports whether the message is no longer part of the sources.
func (s Status) Retired() bool { return s == Obsolete || s == Vanished }

// Location is the provenance of a message in the extracted sources.
type Location struct {
	Filename string
	Line     int
}

// Key identifies a message within one context.
type Key struct {
	Source  string
	Comment string
}

// Message is one catalog entry.
type Message struct {
	Source            string
	Comment           string
	OldSource         string
	ExtraComment      string
	TranslatorComment string
	Numerus           bool
	// Translations holds one entry for singular messages and one per
	// numerus form for plural messages.
	Translations []string
	Status       Status
	Locations    []Location
}

func (m *Message) Key() Key { return Key{Source: m.Source, Comment: m.Comment} }

// Translation is the singular translation text.
func (m *Message) Translation() string {
	if len(m.Translations) == 0 {
		return ""
	}
	return m.Translations[0]
}

// IsEmpty reports whether no translation form carries text.
func (m *Message) IsEmpty() bool {
	for _, t := range m.Translations {
		if t != "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	c := *m
	c.Translations = append([]string(nil), m.Translations...)
	c.Locations = append([]Location(nil), m.Locations...)
	return &c
}

// resize pads or truncates the translation slots to n.
func (m *Message) resize(n int) {
	if n < 1 {
		n = 1
	}
	switch {
	case len(m.Translations) > n:
		m.Translations = m.Translations[:n]
	case len(m.Translations) < n:
		m.Translations = append(m.Translations, make([]string, n-len(m.Translations))...)
	}
}

// Context groups the messages of one translation context, in order.
type Context struct {
	Name     string
	Messages []*Message
}

// Find returns the message identified by k.
func (c *Context) Find(k Key) (*Message, bool) {
	for _, m := range c.Messages {
		if m.Key() == k {
			return m, true
		}
	}
	return nil, false
}

// Catalog is a whole TS document.
type Catalog struct {
	Version        string
	Language       string
	SourceLanguage string
	Contexts       []*Context
}

// New returns an empty catalog for language.
func New(language string) *Catalog {
	return &Catalog{Version: DefaultVersion, Language: language}
}

// Context returns the named context, if present.
func (c *Catalog) Context(name string) (*Context, bool) {
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx, true
		}
	}
	return nil, false
}

// EnsureContext returns the named context, appending it when missing.
func (c *Catalog) EnsureContext(name string) *Context {
	if ctx, ok := c.Context(name); ok {
		return ctx
	}
	ctx := &Context{Name: name}
	c.Contexts = append(c.Contexts, ctx)
	return ctx
}

// Add appends m to the named context. Adding a second message with the same
// (source, comment) pair fails.
func (c *Catalog) Add(context string, m *Message) error {
	if context == "" {
		return ErrEmptyContext
	}
	ctx := c.EnsureContext(context)
	if _, dup := ctx.Find(m.Key()); dup {
		return errors.Wrapf(ErrDuplicateKey, "%s: %q (%q)", context, m.Source, m.Comment)
	}
	ctx.Messages = append(ctx.Messages, m)
	return nil
}

// Find returns the message with the given identity in context.
func (c *Catalog) Find(context, source, comment string) (*Message, bool) {
	ctx, ok := c.Context(context)
	if !ok {
		return nil, false
	}
	return ctx.Find(Key{Source: source, Comment: comment})
}

// Locale resolves the catalog language.
func (c *Catalog) Locale() (*locale.Locale, error) {
	return locale.Lookup(c.Language)
}

// Translate returns the finished singular translation of a message, or ""
// when it is missing, unfinished or retired.
func (c *Catalog) Translate(context, source, comment string) string {
	m, ok := c.Find(context, source, comment)
	if !ok || m.Status != Translated {
		return ""
	}
	return m.Translation()
}

// TranslatePlural picks the numerus form for n using the catalog language's
// plural rule. Singular messages answer with their only form.
func (c *Catalog) TranslatePlural(context, source, comment string, n int) string {
	m, ok := c.Find(context, source, comment)
	if !ok || m.Status != Translated {
		return ""
	}
	if !m.Numerus || len(m.Translations) < 2 {
		return m.Translation()
	}
	idx := len(m.Translations) - 1
	if l, err := c.Locale(); err == nil {
		idx = l.PluralIndex(n)
	}
	if idx >= len(m.Translations) {
		idx = len(m.Translations) - 1
	}
	return m.Translations[idx]
}

// Messages returns the number of messages across all contexts.
func (c *Catalog) Messages() int {
	n := 0
	for _, ctx := range c.Contexts {
		n += len(ctx.Messages)
	}
	return n
}

// Stats counts messages by status.
type Stats struct {
	Total      int
	Translated int
	Unfinished int
	Obsolete   int
	Numerus    int
}

func (c *Catalog) Stats() Stats {
	var s Stats
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			s.Total++
			if m.Numerus {
				s.Numerus++
			}
			switch m.Status {
			case Translated:
				s.Translated++
			case Unfinished:
				s.Unfinished++
			default:
				s.Obsolete++
			}
		}
	}
	return s
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{Version: c.Version, Language: c.Language, SourceLanguage: c.SourceLanguage}
	for _, ctx := range c.Contexts {
		nc := &Context{Name: ctx.Name, Messages: make([]*Message, 0, len(ctx.Messages))}
		for _, m := range ctx.Messages {
			nc.Messages = append(nc.Messages, m.Clone())
		}
		out.Contexts = append(out.Contexts, nc)
	}
	return out
}

// MessageKey flattens a message identity into one string, separating the
// parts with EOT the way gettext separates msgctxt from msgid.
func MessageKey(context, source, comment string) string {
	return context + "\x04" + source + "\x04" + comment
}

// SplitMessageKey reverses MessageKey.
func SplitMessageKey(key string) (context, source, comment string, ok bool) {
	parts := strings.SplitN(key, "\x04", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// FlatID names a message in formats with a single string key, such as
// go-i18n bundles: the source, prefixed with "comment|" when there is one
// or when the source itself contains a "|".
func FlatID(source, comment string) string {
	if comment == "" && !strings.Contains(source, "|") {
		return source
	}
	return comment + "|" + source
}

// SplitFlatID reverses FlatID. Comments containing "|" do not survive the
// round trip.
func SplitFlatID(id string) (source, comment string) {
	comment, source, ok := strings.Cut(id, "|")
	if !ok {
		return id, ""
	}
	return source, comment
}
