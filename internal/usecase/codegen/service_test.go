package codegen_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/template"
	"github.com/steveire/grantlee/internal/usecase/codegen"
)

const plan = `
files:
  - template: class.rb
    output: "lib/{{ className|snakecase }}.rb"
  - template: class.rb
    output: lib/animal.rb
    data:
      className: Animal
      baseClass: null
      attributes: []
      methods: []
className: PersonRecord
baseClass:
  module: base
  name: Base
attributes: [name, age]
methods:
  - {kind: getter, name: name}
  - {kind: setter, name: age}
`

func newService() *codegen.Service {
	e := template.New(
		template.WithLoader(template.NewFileSystemLoader(filepath.Join("..", "..", "template", "testdata", "ruby"))),
		template.WithAutoescape(false),
	)
	return codegen.New(e, nil)
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	data, err := codegen.DecodeData(".yaml", []byte(plan))
	require.NoError(t, err)

	out := t.TempDir()
	results, err := newService().Generate(data, out)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(out, "lib", "person_record.rb"), results[0].Path)

	got, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, `require "base"
class PersonRecord < Base
  attr_accessor :name
  attr_accessor :age
  def name
    @name
  end
  def age=(value)
    @age = value
  end
end
`, string(got))

	got, err = os.ReadFile(filepath.Join(out, "lib", "animal.rb"))
	require.NoError(t, err)
	assert.Equal(t, "class Animal\nend\n", string(got))
}

func TestDecodeData(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ext  string
		src  string
		want map[string]any
	}{
		{".json", `{"className": "Person", "n": 2}`, map[string]any{"className": "Person", "n": float64(2)}},
		{".yml", "className: Person\nn: 2\n", map[string]any{"className": "Person", "n": 2}},
		{".toml", "className = \"Person\"\nn = 2\n", map[string]any{"className": "Person", "n": int64(2)}},
	}
	for _, tt := range tests {
		got, err := codegen.DecodeData(tt.ext, []byte(tt.src))
		require.NoError(t, err, tt.ext)
		assert.Equal(t, tt.want, got, tt.ext)
	}

	_, err := codegen.DecodeData(".xml", []byte("<a/>"))
	assert.Error(t, err)
	_, err = codegen.DecodeData(".json", []byte("{"))
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	t.Parallel()
	files, err := codegen.Plan(map[string]any{"files": []any{"model.go.tmpl", map[string]any{"template": "x", "output": "y"}}})
	require.NoError(t, err)
	assert.Equal(t, []codegen.File{{Template: "model.go.tmpl", Output: "model.go"}, {Template: "x", Output: "y"}}, files)

	tests := []map[string]any{
		{},
		{"files": "class.rb"},
		{"files": []any{map[string]any{"output": "y"}}},
		{"files": []any{42}},
	}
	for _, data := range tests {
		_, err := codegen.Plan(data)
		assert.Error(t, err, "%v", data)
	}
}

func TestGenerateRejectsEscapingOutput(t *testing.T) {
	t.Parallel()
	data := map[string]any{"files": []any{map[string]any{"template": "getter.rb", "output": "../evil.rb"}}}
	_, err := newService().Generate(data, t.TempDir())
	assert.ErrorContains(t, err, "escapes")
}
