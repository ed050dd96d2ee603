package app

import (
	"context"

	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/ports"
)

type TranslationsAPI struct {
	repo  ports.TranslationRepository
	units ports.UnitRepository
}

func NewTranslationsAPI(repo ports.TranslationRepository, units ports.UnitRepository) *TranslationsAPI {
	return &TranslationsAPI{repo: repo, units: units}
}

type UpsertTranslationRequest struct {
	UnitID     int64    `json:"unit_id"`
	Locale     string   `json:"locale"`
	Forms      []string `json:"forms"`
	Status     string   `json:"status"`
	ProviderID *int64   `json:"provider_id"`
}

// Upsert stores a manual translation. Plural units need one form per
// plural category of the locale; a translated status needs every form
// filled.
func (a *TranslationsAPI) Upsert(ctx context.Context, req UpsertTranslationRequest) error {
	u, err := a.units.Get(ctx, req.UnitID)
	if err != nil {
		return err
	}
	want := 1
	if u.Numerus {
		l, err := locale.Lookup(req.Locale)
		if err != nil {
			return err
		}
		want = l.PluralCount()
	}
	if len(req.Forms) != want {
		return errors.Errorf("unit %d needs %d forms in %s, got %d", u.ID, want, req.Locale, len(req.Forms))
	}
	status := req.Status
	if status == "" {
		status = domain.StatusTranslated
	}
	t := &domain.Translation{UnitID: req.UnitID, Locale: req.Locale, Forms: req.Forms, Status: status, ProviderID: req.ProviderID}
	if status == domain.StatusTranslated && !t.Complete() {
		return errors.New("translated status needs every form filled")
	}
	return a.repo.Upsert(ctx, t)
}

type UnitText struct {
	UnitID  int64    `json:"unit_id"`
	Key     string   `json:"key"`
	Context string   `json:"context"`
	Source  string   `json:"source"`
	Numerus bool     `json:"numerus"`
	Forms   []string `json:"forms"`
	Status  string   `json:"status"`
}

// ListUnitTexts pairs every unit of a file with its translation in loc.
func (a *TranslationsAPI) ListUnitTexts(ctx context.Context, fileID int64, loc string) ([]*UnitText, error) {
	units, err := a.units.ListByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	trs, err := a.repo.ListByFileLocale(ctx, fileID, loc)
	if err != nil {
		return nil, err
	}
	byUnit := make(map[int64]*domain.Translation, len(trs))
	for _, t := range trs {
		byUnit[t.UnitID] = t
	}
	out := make([]*UnitText, 0, len(units))
	for _, u := range units {
		ut := &UnitText{UnitID: u.ID, Key: u.Key, Context: u.Context, Source: u.SourceText, Numerus: u.Numerus}
		if t := byUnit[u.ID]; t != nil {
			ut.Forms, ut.Status = t.Forms, t.Status
		}
		out = append(out, ut)
	}
	return out, nil
}
