// Package exporter rebuilds catalogs from the project store and serializes
// them.
package exporter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	exreg "github.com/steveire/grantlee/internal/adapters/exporter/registry"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/ports"
)

type Service struct {
	Files    ports.FileRepository
	Units    ports.UnitRepository
	Trans    ports.TranslationRepository
	Projects ports.ProjectRepository
	Reg      *exreg.Registry
	log      *zap.Logger
}

func New(files ports.FileRepository, units ports.UnitRepository, trans ports.TranslationRepository, projects ports.ProjectRepository, reg *exreg.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Files: files, Units: units, Trans: trans, Projects: projects, Reg: reg, log: log}
}

type ExportArgs struct {
	FileID int64
	Locale string
	// OverrideFormat replaces the format the file was imported with.
	OverrideFormat string
}

type ExportResult struct {
	Filename string
	Format   string
	Content  []byte
	Stats    catalog.Stats
}

// ExportFile writes the translations of one file in one locale.
func (s *Service) ExportFile(ctx context.Context, a ExportArgs) (ExportResult, error) {
	f, err := s.Files.Get(ctx, a.FileID)
	if err != nil {
		return ExportResult{}, err
	}
	format := f.Format
	if a.OverrideFormat != "" {
		format = a.OverrideFormat
	}
	exp, ok := s.Reg.Get(format)
	if !ok {
		return ExportResult{}, errors.Errorf("no exporter for format: %s", format)
	}
	c, err := s.Catalog(ctx, f, a.Locale)
	if err != nil {
		return ExportResult{}, err
	}
	content, err := exp.Export(c)
	if err != nil {
		return ExportResult{}, errors.Wrapf(err, "export %s as %s", f.Path, format)
	}
	st := c.Stats()
	s.log.Info("catalog exported",
		zap.String("file", f.Path),
		zap.String("format", format),
		zap.String("locale", c.Language),
		zap.Int("translated", st.Translated),
		zap.Int("total", st.Total))
	return ExportResult{Filename: Filename(f.Path, c.Language, format, exp.Ext()), Format: format, Content: content, Stats: st}, nil
}

// Catalog rebuilds the catalog of file f in locale loc. Machine
// translations count as finished; units without a complete translation
// come out unfinished and empty, sized for the locale's plural forms.
func (s *Service) Catalog(ctx context.Context, f *domain.File, loc string) (*catalog.Catalog, error) {
	if loc == "" {
		loc = f.Locale
	}
	units, err := s.Units.ListByFile(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	trList, err := s.Trans.ListByFileLocale(ctx, f.ID, loc)
	if err != nil {
		return nil, err
	}
	byUnit := make(map[int64]*domain.Translation, len(trList))
	for _, t := range trList {
		byUnit[t.UnitID] = t
	}

	c := catalog.New(loc)
	if s.Projects != nil {
		if p, err := s.Projects.Get(ctx, f.ProjectID); err == nil {
			c.SourceLanguage = p.SourceLang
		}
	}
	forms := 1
	if l, err := locale.Lookup(loc); err == nil {
		forms = l.PluralCount()
	}
	for _, u := range units {
		m := &catalog.Message{
			Source:            u.SourceText,
			Comment:           u.Comment,
			OldSource:         u.OldSource,
			ExtraComment:      u.ExtraComment,
			TranslatorComment: u.TranslatorComment,
			Numerus:           u.Numerus,
		}
		for _, l := range u.Locations {
			m.Locations = append(m.Locations, catalog.Location{Filename: l.Filename, Line: l.Line})
		}
		n := 1
		if u.Numerus {
			n = forms
		}
		t := byUnit[u.ID]
		switch {
		case t != nil && t.Status == domain.StatusObsolete:
			m.Status = catalog.Obsolete
			m.Translations = fit(t.Forms, n)
		case (t != nil && (t.Status == domain.StatusTranslated || t.Status == domain.StatusMachine)) &&
			t.Complete() && len(t.Forms) == n:
			m.Status = catalog.Translated
			m.Translations = append([]string(nil), t.Forms...)
		default:
			m.Status = catalog.Unfinished
			m.Translations = make([]string, n)
		}
		ctxName := u.Context
		if ctxName == "" {
			ctxName = catalog.DefaultContext
		}
		if err := c.Add(ctxName, m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func fit(forms []string, n int) []string {
	out := make([]string, n)
	copy(out, forms)
	return out
}

// Filename names an exported file. go-i18n bundles take the language tag
// as their name; other formats keep the imported base name.
func Filename(path, loc, format, ext string) string {
	if strings.HasPrefix(format, "goi18n") {
		return strings.ReplaceAll(loc, "_", "-") + "." + ext
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + ext
}
