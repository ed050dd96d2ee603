package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
)

type TemplateRepo struct{ *Repo }

func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{NewRepo(db)} }

var templateColumns = []string{"id", "scope", "ref_id", "type", "role", "body", "is_default", "updated_at"}

// GetEffective returns provider or project -> global (nil if none in DB).
func (r *TemplateRepo) GetEffective(ctx context.Context, scope string, refID *int64, typ, role string) (*domain.Template, error) {
	if (scope == domain.ScopeProvider || scope == domain.ScopeProject) && refID != nil {
		t, err := r.getOne(ctx, scope, refID, typ, role)
		if err != nil || t != nil {
			return t, err
		}
	}
	return r.getOne(ctx, domain.ScopeGlobal, nil, typ, role)
}

func scanTemplate(row interface{ Scan(...any) error }) (*domain.Template, error) {
	var t domain.Template
	var ref sql.NullInt64
	var updated string
	if err := row.Scan(&t.ID, &t.Scope, &ref, &t.Type, &t.Role, &t.Body, &t.IsDefault, &updated); err != nil {
		return nil, err
	}
	t.RefID = nullInt64(ref)
	t.UpdatedAt = parseTime(updated)
	return &t, nil
}

func (r *TemplateRepo) getOne(ctx context.Context, scope string, refID *int64, typ, role string) (*domain.Template, error) {
	b := r.SQ.Select(templateColumns...).From("templates").
		Where(sq.Eq{"scope": scope, "type": typ, "role": role}).
		OrderBy("id DESC").Limit(1)
	if refID != nil {
		b = b.Where(sq.Eq{"ref_id": *refID})
	} else {
		b = b.Where("ref_id IS NULL")
	}
	sqlStr, args, _ := b.ToSql()
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// Upsert replaces the template stored for (scope, ref_id, type, role).
func (r *TemplateRepo) Upsert(ctx context.Context, t *domain.Template) error {
	return WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		del := r.SQ.Delete("templates").Where(sq.Eq{"scope": t.Scope, "type": t.Type, "role": t.Role})
		if t.RefID != nil {
			del = del.Where(sq.Eq{"ref_id": *t.RefID})
		} else {
			del = del.Where("ref_id IS NULL")
		}
		sqlStr, args, _ := del.ToSql()
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
		ts := now()
		sqlStr, args, _ = r.SQ.Insert("templates").Columns(templateColumns[1:]...).
			Values(t.Scope, t.RefID, t.Type, t.Role, t.Body, t.IsDefault, ts).ToSql()
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		t.ID, _ = res.LastInsertId()
		t.UpdatedAt = parseTime(ts)
		return nil
	})
}

func (r *TemplateRepo) List(ctx context.Context) ([]*domain.Template, error) {
	sqlStr, args, _ := r.SQ.Select(templateColumns...).From("templates").OrderBy("scope", "type", "role", "id").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
