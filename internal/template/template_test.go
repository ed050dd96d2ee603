package template_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/template"
)

type user struct {
	Name  string
	Admin bool
}

func (u *user) Greeting() string { return "hi " + u.Name }

func (u *user) Broken() (string, error) { return "", errors.New("boom") }

func render(t *testing.T, e *template.Engine, src string, data any) string {
	t.Helper()
	tmpl, err := e.FromString("test", src)
	require.NoError(t, err)
	out, err := tmpl.Render(data)
	require.NoError(t, err)
	return out
}

func TestRender(t *testing.T) {
	t.Parallel()

	people := []map[string]any{
		{"name": "A", "gender": "f"},
		{"name": "B", "gender": "f"},
		{"name": "C", "gender": "m"},
	}
	data := map[string]any{
		"name":   "Bob",
		"html":   "<i>x</i>",
		"list":   []string{"a", "b", "c"},
		"n":      3,
		"flag":   false,
		"m":      map[string]int{"b": 2, "a": 1},
		"outer":  []int{1, 2},
		"user":   &user{Name: "ann", Admin: true},
		"people": people,
		"empty":  "",
		"zero":   0,
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"variable", "Hello {{ name }}", "Hello Bob"},
		{"escaped", "{{ html }}", "&lt;i&gt;x&lt;/i&gt;"},
		{"missing", "[{{ missing }}|{{ missing.field }}|{{ name.nope }}]", "[||]"},
		{"struct field", "{{ user.name }} {{ user.Name }}", "ann ann"},
		{"method", "{{ user.greeting }}", "hi ann"},
		{"index", "{{ list.0 }}{{ list.2 }}{{ list.9 }}", "ac"},
		{"map items", "{% for k, v in m.items %}{{ k }}{{ v }}{% endfor %}", "a1b2"},
		{"if suppressed", "<{% if missing %}base{% endif %}>", "<>"},
		{"elif", "{% if flag %}A{% elif n == 3 %}B{% else %}C{% endif %}", "B"},
		{"else", "{% if flag %}A{% else %}C{% endif %}", "C"},
		{"operators", "{% if n > 2 and not flag %}yes{% endif %}", "yes"},
		{"or precedence", "{% if flag or n >= 3 and user.admin %}yes{% endif %}", "yes"},
		{"in", "{% if 'b' in list %}in{% endif %}{% if 'z' not in list %}out{% endif %}", "inout"},
		{"substring", "{% if 'ob' in name %}sub{% endif %}", "sub"},
		{"for", "{% for x in list %}{{ forloop.counter }}{{ x }}{% if not forloop.last %},{% endif %}{% endfor %}", "1a,2b,3c"},
		{"for reversed", "{% for x in list reversed %}{{ x }}{% endfor %}", "cba"},
		{"for empty", "{% for x in missing %}x{% empty %}none{% endfor %}", "none"},
		{"for map", "{% for k, v in m %}{{ k }}={{ v }};{% endfor %}", "a=1;b=2;"},
		{"for keys", "{% for k in m %}{{ k }}{% endfor %}", "ab"},
		{"parentloop", "{% for a in outer %}{% for b in outer %}{{ forloop.parentloop.counter }}{{ forloop.counter }} {% endfor %}{% endfor %}", "11 12 21 22 "},
		{"revcounter", "{% for x in list %}{{ forloop.revcounter0 }}{% endfor %}", "210"},
		{"with", "{% with name|upper as shout %}{{ shout }}{% endwith %}{{ shout }}", "BOB"},
		{"with pairs", "{% with a=1 b='x' %}{{ a }}{{ b }}{% endwith %}", "1x"},
		{"filters chain", "{{ name|upper|lower|capfirst }}", "Bob"},
		{"join escapes", "{{ items|join:', ' }}", "a, &lt;b&gt;"},
		{"default", "{{ missing|default:'none' }} {{ empty|default_if_none:'x' }}.", "none ."},
		{"safe", "{{ html|safe }}", "<i>x</i>"},
		{"autoescape off", "{% autoescape off %}{{ html }}{% endautoescape %}{{ html }}", "<i>x</i>&lt;i&gt;x&lt;/i&gt;"},
		{"literal is safe", `{{ "<b>" }}`, "<b>"},
		{"comment", "a{# note #}b{% comment %}hidden {{ x }}{% endcomment %}c", "abc"},
		{"cycle", "{% for x in list %}{% cycle 'odd' 'even' %} {% endfor %}", "odd even odd "},
		{"named cycle", "{% cycle 'a' 'b' as c %}{% cycle c %}{% cycle c %}{{ c }}", "abaa"},
		{"firstof", "{% firstof empty zero 'fallback' %}", "fallback"},
		{"ifequal", "{% ifequal name 'Bob' %}eq{% else %}ne{% endifequal %}", "eq"},
		{"ifnotequal", "{% ifnotequal n 3 %}ne{% else %}eq{% endifnotequal %}", "eq"},
		{"spaceless", "{% spaceless %} <p>\n  <a>x</a>\n</p> {% endspaceless %}", "<p><a>x</a></p>"},
		{"templatetag", "{% templatetag openblock %} x {% templatetag closevariable %}", "{% x }}"},
		{"regroup", "{% regroup people by gender as groups %}{% for g in groups %}{{ g.grouper }}:{% for p in g.list %}{{ p.name }}{% endfor %};{% endfor %}", "f:AB;m:C;"},
		{"truncatewords", "{{ 'one two three'|truncatewords:2 }}", "one two ..."},
		{"slice", "{{ list|slice:':2'|join:'' }} {{ name|slice:'1:' }}", "ab ob"},
		{"length", "{{ list|length }} {{ name|length }}", "3 3"},
		{"add", "{{ 2|add:3 }} {{ name|add:'!' }}", "5 Bob!"},
		{"yesno", "{{ flag|yesno:'on,off' }} {{ missing|yesno }}", "off maybe"},
		{"pluralize", "{{ n }} item{{ n|pluralize }}, 1 cherr{{ 1|pluralize:'y,ies' }}", "3 items, 1 cherry"},
		{"case", "{{ 'user_name'|camelcase }} {{ 'UserName'|snakecase }} {{ 'UserName'|kebabcase }}", "UserName user_name user-name"},
		{"striptags", "{{ '<b>bold</b> &amp; x'|striptags }}", "bold &amp; x"},
		{"markdown", "{{ '# Title'|markdown }}", "<h1>Title</h1>\n"},
		{"append", `{{ name|append:".rb" }}`, "Bob.rb"},
		{"first last", "{{ list|first }}{{ list|last }}", "ac"},
		{"cut", `{{ 'this'|cut:"i" }}`, "ths"},
		{"linebreaksbr", "{{ text|linebreaksbr }}", "a&lt;<br />b"},
		{"floatformat", "{{ 3.14159|floatformat:2 }} {{ 2.0|floatformat }}", "3.14 2"},
		{"stringformat", "{{ n|stringformat:'03d' }}", "003"},
		{"dictsort", "{% for p in people|dictsortreversed:'name' %}{{ p.name }}{% endfor %}", "CBA"},
		{"divisibleby", "{% if n|divisibleby:3 %}three{% endif %}", "three"},
		{"slugify", "{{ 'Hello, World  Go'|slugify }}", "hello-world-go"},
		{"escape once", "{{ html|escape|escape }}", "&lt;i&gt;x&lt;/i&gt;"},
		{"lone braces", "a { b } {x}", "a { b } {x}"},
		{"ifchanged body", "{% for p in people %}{% ifchanged %}{{ p.gender }}{% endifchanged %}{{ p.name }}{% endfor %}", "fABmC"},
		{"ifchanged values", "{% for p in people %}{% ifchanged p.gender %}[{{ p.gender }}]{% else %},{% endifchanged %}{{ p.name }}{% endfor %}", "[f]A,B[m]C"},
		{"ifchanged firstloop", "{% for p in people %}{% ifchanged p.gender %}{% if not ifchanged.firstloop %}|{% endif %}{{ p.gender }}{% endifchanged %}{% endfor %}", "f|m"},
		{"ifchanged resets per loop", "{% for a in outer %}{% for b in outer %}{% ifchanged %}x{% endifchanged %}{% endfor %}{% endfor %}", "xx"},
		{"range", "{% range 3 as i %}{{ i }}{% endrange %}", "012"},
		{"range start stop", "{% range 1 n as i %}{{ i }}{% endrange %}", "12"},
		{"range step", "{% range 0 10 4 as i %}{{ i }},{% endrange %}", "0,4,8,"},
		{"range counting down", "{% range 3 0 -1 as i %}{{ i }}{% endrange %}", "321"},
		{"range unnamed", "{% range n %}*{% endrange %}", "***"},
		{"widthratio", "{% widthratio 175 200 100 %}", "88"},
		{"widthratio rounds half up", "{% widthratio 1 8 4 %}", "1"},
		{"widthratio zero max", "[{% widthratio 1 0 100 %}]", "[]"},
		{"widthratio missing", "[{% widthratio missing 200 100 %}]", "[]"},
		{"filter", "{% filter lower|cut:' ' %}Hello {{ name }}{% endfilter %}", "hellobob"},
		{"filter keeps escaping", "{% filter upper %}{{ html }}{% endfilter %}", "&LT;I&GT;X&LT;/I&GT;"},
	}
	e := template.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := map[string]any{"items": []string{"a", "<b>"}, "text": "a<\nb"}
			for k, v := range data {
				d[k] = v
			}
			assert.Equal(t, tt.want, render(t, e, tt.src, d))
		})
	}
}

func TestRenderIsPure(t *testing.T) {
	t.Parallel()

	e := template.New()
	tmpl, err := e.FromString("pure", "{% for x in list %}{% cycle 'a' 'b' %}{{ x }}{% endfor %}")
	require.NoError(t, err)
	data := map[string]any{"list": []int{1, 2, 3}}
	first, err := tmpl.Render(data)
	require.NoError(t, err)
	second, err := tmpl.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "a1b2a3", first)
	assert.Equal(t, first, second)
}

func TestStructRoot(t *testing.T) {
	t.Parallel()

	out := render(t, template.New(), "{{ name }}{% if admin %}!{% endif %}", &user{Name: "ann", Admin: true})
	assert.Equal(t, "ann!", out)
}

func TestWithAutoescapeOption(t *testing.T) {
	t.Parallel()

	e := template.New(template.WithAutoescape(false))
	assert.Equal(t, "<i>", render(t, e, "{{ v }}", map[string]any{"v": "<i>"}))

	tmpl, err := e.FromString("ctx", "{{ v }}")
	require.NoError(t, err)
	c := template.NewContext(map[string]any{"v": "<i>"})
	c.SetAutoescape(true)
	out, err := tmpl.RenderContext(c)
	require.NoError(t, err)
	assert.Equal(t, "&lt;i&gt;", out)
}

func TestNowUsesClock(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return time.Date(2010, 5, 9, 14, 30, 0, 0, time.UTC) }
	e := template.New(template.WithClock(clock))
	assert.Equal(t, "2010-05-09 14:30 Sun", render(t, e, `{% now "Y-m-d H:i D" %}`, nil))
	assert.Equal(t, "May 9, 2010", render(t, e, `{{ when|date }}`, map[string]any{"when": clock()}))
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		kind template.ErrorKind
		line int
	}{
		{"{% if %}x{% endif %}", template.TagSyntaxError, 1},
		{"a\nb\n{% bogus %}", template.UnknownTag, 3},
		{"{{ x|nope }}", template.UnknownFilter, 1},
		{"{% for x in list %}", template.TagSyntaxError, 1},
		{"{% for x of list %}{% endfor %}", template.TagSyntaxError, 1},
		{"{{ }}", template.TagSyntaxError, 1},
		{"{% if a %}{% endfor %}", template.UnknownTag, 1},
		{"x{% if a %}{% endif %}{% extends 'base' %}", template.TagSyntaxError, 1},
		{"{% extends 'a' %}{% extends 'b' %}", template.TagSyntaxError, 1},
		{"{% block a %}{% endblock %}{% block a %}{% endblock %}", template.TagSyntaxError, 1},
		{"{% cycle missing %}", template.TagSyntaxError, 1},
		{"{% autoescape maybe %}{% endautoescape %}", template.TagSyntaxError, 1},
		{"{% if a == %}{% endif %}", template.TagSyntaxError, 1},
		{`{{ "open }}`, template.TagSyntaxError, 1},
		{"{% ifchanged %}x", template.TagSyntaxError, 1},
		{"{% range %}{% endrange %}", template.TagSyntaxError, 1},
		{"{% range 1 2 3 4 as i %}{% endrange %}", template.TagSyntaxError, 1},
		{"{% widthratio 1 2 %}", template.TagSyntaxError, 1},
		{"{% filter escape %}x{% endfilter %}", template.TagSyntaxError, 1},
		{"{% filter safe|lower %}x{% endfilter %}", template.TagSyntaxError, 1},
	}
	e := template.New()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			_, err := e.FromString("bad", tt.src)
			require.Error(t, err)
			var te *template.TemplateError
			require.True(t, errors.As(err, &te), "%T", err)
			assert.Equal(t, tt.kind, te.Kind, te.Error())
			assert.Equal(t, tt.line, te.Line)
			assert.Equal(t, "bad", te.Template)
		})
	}
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	loader := template.NewInMemoryLoader(map[string]string{
		"rec":  "{% include 'rec' %}",
		"self": "{% extends 'self' %}",
	})
	e := template.New(template.WithLoader(loader))

	_, err := e.Render("rec", nil)
	require.True(t, template.IsKind(err, template.RenderError), "%v", err)

	_, err = e.Render("self", nil)
	require.True(t, template.IsKind(err, template.RenderError), "%v", err)

	tmpl, err := e.FromString("inc", "{% include 'missing' %}")
	require.NoError(t, err)
	_, err = tmpl.Render(nil)
	require.ErrorIs(t, err, template.ErrTemplateNotFound)

	_, err = e.GetTemplate("missing")
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
	require.True(t, template.IsKind(err, template.TemplateNotFound))

	tmpl, err = e.FromString("method", "{{ user.broken }}")
	require.NoError(t, err)
	_, err = tmpl.Render(map[string]any{"user": &user{}})
	require.True(t, template.IsKind(err, template.RenderError))
	assert.Contains(t, err.Error(), "boom")
}

func TestIncludeAndExtends(t *testing.T) {
	t.Parallel()

	loader := template.NewInMemoryLoader(map[string]string{
		"inc":        "[{{ name }}]",
		"base":       "<{% block title %}Base{% endblock %}|{% block body %}B{% endblock %}>",
		"child":      "{% extends 'base' %}ignored{% block title %}Child+{{ block.super }}{% endblock %}",
		"grandchild": "{% extends 'child' %}{% block body %}G{{ block.super }}{% endblock %}",
		"dynamic":    "{% extends parent %}{% block body %}D{% endblock %}",
		"nested":     "{% block outer %}o[{% block inner %}i{% endblock %}]{% endblock %}",
		"nestedkid":  "{% extends 'nested' %}{% block inner %}I{% endblock %}",
	})
	e := template.New(template.WithLoader(loader))
	data := map[string]any{"name": "bob", "parent": "base"}

	tests := []struct {
		name, src, want string
	}{
		{"include literal", "{% include 'inc' %}", "[bob]"},
		{"include expression", "{% include which|append:'c' %}", "[bob]"},
		{"include with", "{% include 'inc' with name='ann' %}{{ name }}", "[ann]bob"},
		{"include only", "{% include 'inc' only %}", "[]"},
		{"extends", "{% include 'child' %}", "<Child+Base|B>"},
		{"three levels", "{% include 'grandchild' %}", "<Child+Base|GB>"},
		{"dynamic parent", "{% include 'dynamic' %}", "<Base|D>"},
		{"nested blocks", "{% include 'nestedkid' %}", "o[I]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := map[string]any{"which": "in"}
			for k, v := range data {
				d[k] = v
			}
			assert.Equal(t, tt.want, render(t, e, tt.src, d))
		})
	}
}

func TestCache(t *testing.T) {
	t.Parallel()

	loader := template.NewInMemoryLoader(map[string]string{"a": "A"})

	cached := template.New(template.WithLoader(loader), template.WithCache(8))
	first, err := cached.GetTemplate("a")
	require.NoError(t, err)
	second, err := cached.GetTemplate("a")
	require.NoError(t, err)
	assert.Same(t, first, second)

	cached.Purge()
	third, err := cached.GetTemplate("a")
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	plain := template.New(template.WithLoader(loader))
	x, _ := plain.GetTemplate("a")
	y, _ := plain.GetTemplate("a")
	assert.NotSame(t, x, y)
}

func TestRegisterFilter(t *testing.T) {
	t.Parallel()

	e := template.New()
	e.RegisterFilter("to_write", func(in, _ any, _ bool) (any, error) {
		s, _ := in.(string)
		return "set" + s, nil
	})
	assert.Equal(t, "setName", render(t, e, "{{ p|to_write }}", map[string]any{"p": "Name"}))
}

func TestRubyClassTemplate(t *testing.T) {
	t.Parallel()

	e := template.New(
		template.WithLoader(template.NewFileSystemLoader("testdata/ruby")),
		template.WithAutoescape(false),
	)
	methods := []map[string]any{
		{"kind": "getter", "name": "name"},
		{"kind": "setter", "name": "age"},
	}

	out, err := e.Render("class.rb", map[string]any{
		"className":  "Person",
		"baseClass":  map[string]any{"module": "active_record", "name": "ActiveRecord::Base"},
		"attributes": []string{"name", "age"},
		"methods":    methods,
	})
	require.NoError(t, err)
	assert.Equal(t, `require "active_record"
class Person < ActiveRecord::Base
  attr_accessor :name
  attr_accessor :age
  def name
    @name
  end
  def age=(value)
    @age = value
  end
end
`, out)

	out, err = e.Render("class.rb", map[string]any{"className": "Plain"})
	require.NoError(t, err)
	assert.Equal(t, "class Plain\nend\n", out, "absent base class drops the conditional blocks")
}
