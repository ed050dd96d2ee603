package template

import (
	"io"
	"time"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Engine compiles and caches templates and holds the filter and tag
// libraries. Register filters and tags before rendering concurrently.
type Engine struct {
	loaders    []Loader
	filters    map[string]Filter
	tags       map[string]TagFunc
	autoescape bool
	localizer  Localizer
	now        func() time.Time
	cache      gcache.Cache
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoader appends template loaders, consulted in order.
func WithLoader(l ...Loader) Option {
	return func(e *Engine) { e.loaders = append(e.loaders, l...) }
}

// WithAutoescape sets the default HTML autoescaping. It is on unless turned
// off here, by the context or by {% autoescape off %}.
func WithAutoescape(on bool) Option {
	return func(e *Engine) { e.autoescape = on }
}

// WithLocalizer sets the default localizer for i18n tags and _().
func WithLocalizer(l Localizer) Option {
	return func(e *Engine) { e.localizer = l }
}

// WithClock replaces time.Now for the now tag.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCache keeps up to size compiled templates in an LRU cache. Templates
// built with FromString are never cached.
func WithCache(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.cache = gcache.New(size).LRU().Build()
		}
	}
}

// WithLogger sets the logger used for compilation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine with the default tag and filter libraries.
func New(opts ...Option) *Engine {
	e := &Engine{
		filters:    defaultFilters(),
		tags:       defaultTags(),
		autoescape: true,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterFilter adds or replaces a filter.
func (e *Engine) RegisterFilter(name string, f Filter) { e.filters[name] = f }

// RegisterTag adds or replaces a tag.
func (e *Engine) RegisterTag(name string, f TagFunc) { e.tags[name] = f }

func (e *Engine) filter(name string) (Filter, bool) {
	f, ok := e.filters[name]
	return f, ok
}

func (e *Engine) tag(name string) (TagFunc, bool) {
	f, ok := e.tags[name]
	return f, ok
}

// GetTemplate loads and compiles the named template, asking each loader in
// turn.
func (e *Engine) GetTemplate(name string) (*Template, error) {
	if e.cache != nil {
		if v, err := e.cache.Get(name); err == nil {
			return v.(*Template), nil
		}
	}
	for _, l := range e.loaders {
		src, err := l.Load(name)
		if errors.Is(err, ErrTemplateNotFound) {
			continue
		}
		if err != nil {
			return nil, &TemplateError{Kind: TemplateNotFound, Template: name, Msg: err.Error(), Err: err}
		}
		t, err := e.compile(name, src)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			_ = e.cache.Set(name, t)
		}
		return t, nil
	}
	return nil, notFound(name)
}

// FromString compiles src. name is used in error messages.
func (e *Engine) FromString(name, src string) (*Template, error) {
	return e.compile(name, src)
}

// Render loads the named template and renders it against data.
func (e *Engine) Render(name string, data any) (string, error) {
	t, err := e.GetTemplate(name)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}

// Execute loads the named template and writes its output to w.
func (e *Engine) Execute(w io.Writer, name string, data any) error {
	t, err := e.GetTemplate(name)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}

// Purge drops every cached template.
func (e *Engine) Purge() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

func (e *Engine) compile(name, src string) (*Template, error) {
	p := newParser(e, name, src)
	nodes, _, err := p.Parse()
	if err != nil {
		e.log.Debug("template compile failed", zap.String("template", name), zap.Error(err))
		return nil, err
	}
	if err := checkExtendsFirst(p, nodes); err != nil {
		return nil, err
	}
	e.log.Debug("template compiled", zap.String("template", name), zap.Int("nodes", len(nodes)))
	return &Template{name: name, engine: e, nodes: nodes, blocks: p.blocks}, nil
}
