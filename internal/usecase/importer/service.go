// Package importer loads catalog files into the project store.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	parreg "github.com/steveire/grantlee/internal/adapters/parser/registry"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/ports"
)

type Service struct {
	Files          ports.FileRepository
	Units          ports.UnitRepository
	Translations   ports.TranslationRepository
	Projects       ports.ProjectRepository
	ParserRegistry *parreg.Registry
	log            *zap.Logger
}

func New(files ports.FileRepository, units ports.UnitRepository, trans ports.TranslationRepository, projects ports.ProjectRepository, reg *parreg.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Files: files, Units: units, Translations: trans, Projects: projects, ParserRegistry: reg, log: log}
}

type ImportArgs struct {
	ProjectID int64
	Filename  string
	// Format picks the parser; empty means by file extension.
	Format string
	// Locale overrides the language declared by the file.
	Locale  string
	Content []byte
}

type ImportResult struct {
	FileID       int64
	Locale       string
	Units        int
	Translations int
	// Removed counts units of an earlier import that the file no longer has.
	Removed int
}

// Import parses a catalog and stores its messages as units of one file, and
// their translations under the catalog language. Re-importing the same path
// refreshes the file in place: units the file lost are deleted, and empty
// messages clear the translation stored before.
func (s *Service) Import(ctx context.Context, in ImportArgs) (ImportResult, error) {
	parser, ok := s.parserFor(in)
	if !ok {
		return ImportResult{}, errors.Errorf("unsupported format: %q (%s)", in.Format, in.Filename)
	}
	pr, err := parser.Parse(in.Content)
	if err != nil {
		return ImportResult{}, errors.Wrapf(err, "parse %s", in.Filename)
	}
	loc := in.Locale
	if loc == "" {
		loc = pr.Locale
	}
	if loc == "" && pr.Catalog != nil {
		loc = pr.Catalog.Language
	}

	sum := sha256.Sum256(in.Content)
	f := &domain.File{ProjectID: in.ProjectID, Path: in.Filename, Format: parser.Format(), Locale: loc, Hash: hex.EncodeToString(sum[:])}
	if err := s.Files.Create(ctx, f); err != nil {
		return ImportResult{}, err
	}

	units, forms := Units(pr.Catalog)
	removed, err := s.Units.ReplaceFile(ctx, f.ID, units)
	if err != nil {
		return ImportResult{}, err
	}

	var trs []*domain.Translation
	if loc != "" {
		var cleared []int64
		for i, u := range units {
			if t := forms[i]; t != nil {
				t.UnitID, t.Locale = u.ID, loc
				trs = append(trs, t)
			} else {
				cleared = append(cleared, u.ID)
			}
		}
		if err := s.Translations.UpsertBatch(ctx, trs); err != nil {
			return ImportResult{}, err
		}
		// An empty message in the file drops what an earlier import stored.
		if err := s.Translations.DeleteForUnits(ctx, loc, cleared); err != nil {
			return ImportResult{}, err
		}
		if s.Projects != nil {
			if err := s.Projects.AddLocale(ctx, &domain.ProjectLocale{ProjectID: in.ProjectID, Locale: loc}); err != nil {
				return ImportResult{}, err
			}
		}
	}
	s.log.Info("catalog imported",
		zap.String("file", in.Filename),
		zap.String("format", parser.Format()),
		zap.String("locale", loc),
		zap.Int("units", len(units)),
		zap.Int("translations", len(trs)),
		zap.Int("removed", removed))
	return ImportResult{FileID: f.ID, Locale: loc, Units: len(units), Translations: len(trs), Removed: removed}, nil
}

func (s *Service) parserFor(in ImportArgs) (ports.Parser, bool) {
	if in.Format != "" {
		return s.ParserRegistry.Get(in.Format)
	}
	return s.ParserRegistry.ForPath(in.Filename)
}

// Units flattens a catalog into units in catalog order. The second slice
// holds, per unit, the translation to store or nil; unfinished messages
// without text store nothing.
func Units(c *catalog.Catalog) ([]*domain.Unit, []*domain.Translation) {
	if c == nil {
		return nil, nil
	}
	var units []*domain.Unit
	var trs []*domain.Translation
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			u := &domain.Unit{
				Key:               catalog.MessageKey(ctx.Name, m.Source, m.Comment),
				Context:           ctx.Name,
				SourceText:        m.Source,
				Comment:           m.Comment,
				OldSource:         m.OldSource,
				ExtraComment:      m.ExtraComment,
				TranslatorComment: m.TranslatorComment,
				Numerus:           m.Numerus,
				Position:          len(units),
			}
			for _, l := range m.Locations {
				u.Locations = append(u.Locations, domain.Location{Filename: l.Filename, Line: l.Line})
			}
			units = append(units, u)
			trs = append(trs, translationOf(m))
		}
	}
	return units, trs
}

func translationOf(m *catalog.Message) *domain.Translation {
	t := &domain.Translation{Forms: append([]string(nil), m.Translations...)}
	switch {
	case m.Status.Retired():
		t.Status = domain.StatusObsolete
	case m.IsEmpty():
		return nil
	case m.Status == catalog.Translated:
		t.Status = domain.StatusTranslated
	default:
		t.Status = domain.StatusUnfinished
	}
	return t
}
