// Package codegen renders template sets into source trees.
package codegen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/steveire/grantlee/internal/template"
)

// FilesKey lists the files to generate in a data document.
const FilesKey = "files"

// LoadData reads a JSON, YAML or TOML document into a template context,
// picking the decoder by extension.
func LoadData(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read data")
	}
	return DecodeData(filepath.Ext(path), b)
}

// DecodeData decodes b as the format named by ext (".json", ".yaml",
// ".yml" or ".toml").
func DecodeData(ext string, b []byte) (map[string]any, error) {
	out := map[string]any{}
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(b, &out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &out)
	case ".toml":
		err = toml.Unmarshal(b, &out)
	default:
		return nil, errors.Errorf("unsupported data format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s data", strings.TrimPrefix(ext, "."))
	}
	return out, nil
}

// File is one entry of a generation plan.
type File struct {
	Template string
	// Output is itself a template rendered against the file context.
	Output string
	// Data is merged over the document root for this file only.
	Data map[string]any
}

// Plan reads the files list of a data document. Entries are either a
// template name, written to the same name without a ".tmpl" suffix, or a
// table with template, output and data keys.
func Plan(data map[string]any) ([]File, error) {
	raw, ok := data[FilesKey]
	if !ok {
		return nil, errors.Errorf("data has no %q list", FilesKey)
	}
	entries, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "%q must be a list", FilesKey)
	}
	files := make([]File, 0, len(entries))
	for i, e := range entries {
		var f File
		if name, ok := e.(string); ok {
			f.Template = name
		} else {
			m, err := cast.ToStringMapE(e)
			if err != nil {
				return nil, errors.Errorf("%s[%d]: want a template name or a table", FilesKey, i)
			}
			f.Template = cast.ToString(m["template"])
			f.Output = cast.ToString(m["output"])
			if d, ok := m["data"]; ok {
				if f.Data, err = cast.ToStringMapE(d); err != nil {
					return nil, errors.Wrapf(err, "%s[%d].data", FilesKey, i)
				}
			}
		}
		if f.Template == "" {
			return nil, errors.Errorf("%s[%d]: template is required", FilesKey, i)
		}
		if f.Output == "" {
			f.Output = strings.TrimSuffix(f.Template, ".tmpl")
		}
		files = append(files, f)
	}
	return files, nil
}

type Service struct {
	engine *template.Engine
	log    *zap.Logger
}

// New generates with e. Code generation wants e built with
// template.WithAutoescape(false).
func New(e *template.Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{engine: e, log: log}
}

// Result names a written file.
type Result struct {
	Template string
	Path     string
	Bytes    int
}

// Generate renders every planned file of data into outDir.
func (s *Service) Generate(data map[string]any, outDir string) ([]Result, error) {
	files, err := Plan(data)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(files))
	for _, f := range files {
		ctx := data
		if len(f.Data) > 0 {
			ctx = make(map[string]any, len(data)+len(f.Data))
			for k, v := range data {
				ctx[k] = v
			}
			for k, v := range f.Data {
				ctx[k] = v
			}
		}
		out, err := s.engine.Render(f.Template, ctx)
		if err != nil {
			return results, err
		}
		name, err := s.outputName(f.Output, ctx)
		if err != nil {
			return results, err
		}
		path, err := within(outDir, name)
		if err != nil {
			return results, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return results, errors.Wrap(err, "make output dir")
		}
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return results, errors.Wrap(err, "write output")
		}
		s.log.Info("generated", zap.String("template", f.Template), zap.String("path", path), zap.Int("bytes", len(out)))
		results = append(results, Result{Template: f.Template, Path: path, Bytes: len(out)})
	}
	return results, nil
}

func (s *Service) outputName(pattern string, ctx map[string]any) (string, error) {
	if !strings.Contains(pattern, "{") {
		return pattern, nil
	}
	t, err := s.engine.FromString("output:"+pattern, pattern)
	if err != nil {
		return "", err
	}
	name, err := t.Render(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", errors.Errorf("output %q renders empty", pattern)
	}
	return strings.TrimSpace(name), nil
}

// within joins name to dir and rejects paths that leave dir.
func within(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errors.Errorf("output %q must be relative", name)
	}
	path := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("output %q escapes %s", name, dir)
	}
	return path, nil
}
