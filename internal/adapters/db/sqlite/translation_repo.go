package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
)

type TranslationRepo struct{ *Repo }

func NewTranslationRepo(db *sql.DB) *TranslationRepo { return &TranslationRepo{NewRepo(db)} }

const translationUpsert = "ON CONFLICT(unit_id, locale) DO UPDATE SET forms_json=excluded.forms_json, status=excluded.status, provider_id=excluded.provider_id, confidence=excluded.confidence, updated_at=excluded.updated_at"

func (r *TranslationRepo) Upsert(ctx context.Context, t *domain.Translation) error {
	return r.UpsertBatch(ctx, []*domain.Translation{t})
}

func (r *TranslationRepo) UpsertBatch(ctx context.Context, ts []*domain.Translation) error {
	for len(ts) > batchSize {
		if err := r.UpsertBatch(ctx, ts[:batchSize]); err != nil {
			return err
		}
		ts = ts[batchSize:]
	}
	if len(ts) == 0 {
		return nil
	}
	stamp := now()
	ib := r.SQ.Insert("translations").
		Columns("unit_id", "locale", "forms_json", "status", "provider_id", "confidence", "created_at", "updated_at")
	for _, t := range ts {
		if t.Forms == nil {
			t.Forms = []string{}
		}
		ib = ib.Values(t.UnitID, t.Locale, marshalJSON(t.Forms), t.Status, t.ProviderID, t.Confidence, stamp, stamp)
	}
	sqlStr, args, _ := ib.Suffix(translationUpsert).ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return errors.Wrap(err, "upsert translations")
}

func scanTranslation(row interface{ Scan(...any) error }) (*domain.Translation, error) {
	var t domain.Translation
	var forms, created, updated string
	var prov sql.NullInt64
	var conf sql.NullFloat64
	if err := row.Scan(&t.ID, &t.UnitID, &t.Locale, &forms, &t.Status, &prov, &conf, &created, &updated); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(forms, &t.Forms); err != nil {
		return nil, err
	}
	t.ProviderID = nullInt64(prov)
	if conf.Valid {
		v := conf.Float64
		t.Confidence = &v
	}
	t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
	return &t, nil
}

// Get returns nil without error when the unit has no translation yet.
func (r *TranslationRepo) Get(ctx context.Context, unitID int64, locale string) (*domain.Translation, error) {
	q := r.SQ.Select("id", "unit_id", "locale", "forms_json", "status", "provider_id", "confidence", "created_at", "updated_at").
		From("translations").Where(sq.Eq{"unit_id": unitID, "locale": locale}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	t, err := scanTranslation(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *TranslationRepo) ListByFileLocale(ctx context.Context, fileID int64, locale string) ([]*domain.Translation, error) {
	q := r.SQ.Select("t.id", "t.unit_id", "t.locale", "t.forms_json", "t.status", "t.provider_id", "t.confidence", "t.created_at", "t.updated_at").
		From("translations t").Join("units u ON u.id = t.unit_id").
		Where(sq.Eq{"u.file_id": fileID, "t.locale": locale}).OrderBy("u.position", "u.id")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteForUnits removes the translations of unitIDs in locale.
func (r *TranslationRepo) DeleteForUnits(ctx context.Context, locale string, unitIDs []int64) error {
	for len(unitIDs) > 0 {
		n := min(len(unitIDs), batchSize)
		sqlStr, args, _ := r.SQ.Delete("translations").
			Where(sq.Eq{"locale": locale, "unit_id": unitIDs[:n]}).ToSql()
		if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
			return errors.Wrap(err, "delete translations")
		}
		unitIDs = unitIDs[n:]
	}
	return nil
}
