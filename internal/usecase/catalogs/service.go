// Package catalogs works on TS files directly: string extraction from
// templates, validation, statistics, diffs, re-extraction merges and format
// conversion.
package catalogs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	exreg "github.com/steveire/grantlee/internal/adapters/exporter/registry"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/template"
	"github.com/steveire/grantlee/internal/usecase/exporter"
)

type Service struct {
	Exporters *exreg.Registry
	// Workers bounds concurrent file checks; 0 means GOMAXPROCS.
	Workers int
	log     *zap.Logger
}

func New(reg *exreg.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Exporters: reg, log: log}
}

// Load parses one TS file.
func Load(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer f.Close()
	c, err := catalog.Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Expand resolves glob patterns ("translations/**/*.ts") to sorted,
// distinct file paths. A pattern without glob syntax names a file and is
// passed through untouched.
func Expand(patterns ...string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(filepath.Clean(pattern))
		if !strings.ContainsAny(pattern, "*?[{") {
			add(filepath.FromSlash(pattern))
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		root := staticPrefix(pattern)
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && g.Match(filepath.ToSlash(path)) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", root)
		}
	}
	sort.Strings(out)
	return out, nil
}

// staticPrefix is the directory part of pattern before the first glob
// metacharacter.
func staticPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[{")
	dir := pattern[:i]
	if j := strings.LastIndex(dir, "/"); j >= 0 {
		dir = dir[:j]
	} else {
		dir = "."
	}
	if dir == "" {
		dir = "/"
	}
	return filepath.FromSlash(dir)
}

// Report is the validation outcome of one file. Err is set when the file
// could not be read or parsed.
type Report struct {
	Path       string
	Language   string
	Stats      catalog.Stats
	Violations []*catalog.Violation
	Err        error
}

// OK reports whether the file parsed and has no violations.
func (r Report) OK() bool { return r.Err == nil && len(r.Violations) == 0 }

// Validate checks every file concurrently. Reports keep the order of
// paths.
func (s *Service) Validate(ctx context.Context, paths []string) ([]Report, error) {
	reports := make([]Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := Report{Path: path}
			c, err := Load(path)
			if err != nil {
				r.Err = err
			} else {
				r.Language = c.Language
				r.Stats = c.Stats()
				r.Violations = catalog.Violations(catalog.Validate(c))
			}
			reports[i] = r
			s.log.Debug("validated", zap.String("path", path), zap.Int("violations", len(r.Violations)), zap.Error(r.Err))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Diff compares two TS files.
func Diff(a, b string) ([]catalog.Change, error) {
	ca, err := Load(a)
	if err != nil {
		return nil, err
	}
	cb, err := Load(b)
	if err != nil {
		return nil, err
	}
	return catalog.Diff(ca, cb), nil
}

// Merge folds a fresh extraction into an existing translated file and
// returns the merged catalog serialized as TS.
func (s *Service) Merge(existing, extracted string) ([]byte, catalog.MergeStats, error) {
	fresh, err := Load(extracted)
	if err != nil {
		return nil, catalog.MergeStats{}, err
	}
	return s.MergeInto(existing, fresh)
}

// MergeInto is Merge with the extraction already in memory.
func (s *Service) MergeInto(existing string, fresh *catalog.Catalog) ([]byte, catalog.MergeStats, error) {
	old, err := Load(existing)
	if err != nil {
		return nil, catalog.MergeStats{}, err
	}
	merged, stats := catalog.Merge(old, fresh)
	out, err := catalog.Marshal(merged)
	if err != nil {
		return nil, stats, err
	}
	s.log.Info("merged",
		zap.String("existing", existing),
		zap.Int("kept", stats.Kept),
		zap.Int("changed", stats.Changed),
		zap.Int("added", stats.Added),
		zap.Int("obsolete", stats.Obsolete),
		zap.Int("dropped", stats.Dropped))
	return out, stats, nil
}

// Extract collects the translatable strings of template files into one
// untranslated catalog context, named contextName or GR_FILENAME when
// empty. A string used in several places becomes one message listing every
// location.
func (s *Service) Extract(paths []string, contextName string) (*catalog.Catalog, error) {
	if contextName == "" {
		contextName = catalog.DefaultContext
	}
	c := catalog.New("")
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read template")
		}
		found := template.Extract(string(b))
		for _, tm := range found {
			loc := catalog.Location{Filename: filepath.ToSlash(path), Line: tm.Line}
			if m, ok := c.Find(contextName, tm.Source, tm.Comment); ok {
				m.Locations = append(m.Locations, loc)
				m.Numerus = m.Numerus || tm.Numerus
				continue
			}
			m := &catalog.Message{
				Source:       tm.Source,
				Comment:      tm.Comment,
				Numerus:      tm.Numerus,
				Translations: []string{""},
				Status:       catalog.Unfinished,
				Locations:    []catalog.Location{loc},
			}
			if err := c.Add(contextName, m); err != nil {
				return nil, err
			}
		}
		s.log.Debug("extracted", zap.String("path", path), zap.Int("strings", len(found)))
	}
	return c, nil
}

// Export converts a TS file with the named exporter. The returned name is
// the suggested output file name.
func (s *Service) Export(path, format string) ([]byte, string, error) {
	exp, ok := s.Exporters.Get(format)
	if !ok {
		return nil, "", errors.Errorf("no exporter for format %q (have %s)", format, strings.Join(s.Exporters.Formats(), ", "))
	}
	c, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	out, err := exp.Export(c)
	if err != nil {
		return nil, "", errors.Wrapf(err, "export %s", path)
	}
	return out, exporter.Filename(path, c.Language, format, exp.Ext()), nil
}
