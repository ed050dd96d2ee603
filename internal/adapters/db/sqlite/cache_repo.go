package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
)

// CacheRepo is the translation memory: provider output keyed by source
// text, comment, language pair and model.
type CacheRepo struct{ *Repo }

func NewCacheRepo(db *sql.DB) *CacheRepo { return &CacheRepo{NewRepo(db)} }

func (r *CacheRepo) Get(ctx context.Context, src, comment, srcLang, tgtLang, provider, model string) (*domain.CacheEntry, error) {
	q := r.SQ.Select(
		"id",
		"source_text",
		"comment",
		"src_lang",
		"tgt_lang",
		"provider",
		"model",
		"forms_json",
		"created_at",
	).
		From("cache").
		Where(sq.Eq{
			"source_text": src,
			"comment":     comment,
			"src_lang":    srcLang,
			"tgt_lang":    tgtLang,
			"provider":    provider,
			"model":       model,
		}).
		Limit(1)
	sqlStr, args, _ := q.ToSql()
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var e domain.CacheEntry
	var forms, created string
	if err := row.Scan(
		&e.ID,
		&e.SourceText,
		&e.Comment,
		&e.SrcLang,
		&e.TgtLang,
		&e.Provider,
		&e.Model,
		&forms,
		&created,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := unmarshalJSON(forms, &e.Forms); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(created)
	return &e, nil
}

func (r *CacheRepo) Put(ctx context.Context, entry *domain.CacheEntry) error {
	q := r.SQ.
		Insert("cache").
		Columns(
			"source_text",
			"comment",
			"src_lang",
			"tgt_lang",
			"provider",
			"model",
			"forms_json",
			"created_at",
		).
		Values(
			entry.SourceText,
			entry.Comment,
			entry.SrcLang,
			entry.TgtLang,
			entry.Provider,
			entry.Model,
			marshalJSON(entry.Forms),
			now(),
		).
		Suffix("ON CONFLICT(source_text, comment, src_lang, tgt_lang, provider, model) DO UPDATE SET forms_json=excluded.forms_json")
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}
