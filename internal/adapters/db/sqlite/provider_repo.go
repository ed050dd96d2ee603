package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/steveire/grantlee/internal/domain"
)

type ProviderRepo struct{ *Repo }

func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{NewRepo(db)} }

var providerColumns = []string{"id", "type", "name", "base_url", "model", "api_key", "options_json", "created_at", "updated_at"}

func (r *ProviderRepo) Create(ctx context.Context, p *domain.Provider) error {
	ts := now()
	if p.OptionsRaw == "" {
		p.OptionsRaw = "{}"
	}
	q := r.SQ.Insert("providers").Columns(providerColumns[1:]...).
		Values(p.Type, p.Name, p.BaseURL, p.Model, p.APIKey, p.OptionsRaw, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	p.ID, _ = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = parseTime(ts), parseTime(ts)
	return nil
}

func (r *ProviderRepo) Update(ctx context.Context, p *domain.Provider) error {
	ts := now()
	q := r.SQ.Update("providers").
		Set("type", p.Type).Set("name", p.Name).Set("base_url", p.BaseURL).Set("model", p.Model).
		Set("api_key", p.APIKey).Set("options_json", p.OptionsRaw).Set("updated_at", ts).
		Where(sq.Eq{"id": p.ID})
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	p.UpdatedAt = parseTime(ts)
	return nil
}

func scanProvider(row interface{ Scan(...any) error }) (*domain.Provider, error) {
	var p domain.Provider
	var created, updated string
	if err := row.Scan(&p.ID, &p.Type, &p.Name, &p.BaseURL, &p.Model, &p.APIKey, &p.OptionsRaw, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return &p, nil
}

func (r *ProviderRepo) Get(ctx context.Context, id int64) (*domain.Provider, error) {
	sqlStr, args, _ := r.SQ.Select(providerColumns...).From("providers").Where(sq.Eq{"id": id}).ToSql()
	p, err := scanProvider(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "provider")
	}
	return p, nil
}

func (r *ProviderRepo) List(ctx context.Context) ([]*domain.Provider, error) {
	sqlStr, args, _ := r.SQ.Select(providerColumns...).From("providers").OrderBy("id DESC").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProviderRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, _ := r.SQ.Delete("providers").Where(sq.Eq{"id": id}).ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

// SaveModelCache replaces the cached model list of a provider.
func (r *ProviderRepo) SaveModelCache(ctx context.Context, providerID int64, names []string) error {
	return WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		sqlStr, args, _ := r.SQ.Delete("provider_models").Where(sq.Eq{"provider_id": providerID}).ToSql()
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}
		ts := now()
		ib := r.SQ.Insert("provider_models").Columns("provider_id", "name", "updated_at").
			Suffix("ON CONFLICT(provider_id, name) DO NOTHING")
		for _, n := range names {
			ib = ib.Values(providerID, n, ts)
		}
		sqlStr, args, _ = ib.ToSql()
		_, err := tx.ExecContext(ctx, sqlStr, args...)
		return err
	})
}

func (r *ProviderRepo) ListModelCache(ctx context.Context, providerID int64) ([]*domain.ProviderModel, error) {
	q := r.SQ.Select("id", "provider_id", "name", "updated_at").From("provider_models").
		Where(sq.Eq{"provider_id": providerID}).OrderBy("name")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ProviderModel
	for rows.Next() {
		var pm domain.ProviderModel
		var updated string
		if err := rows.Scan(&pm.ID, &pm.ProviderID, &pm.Name, &updated); err != nil {
			return nil, err
		}
		pm.UpdatedAt = parseTime(updated)
		out = append(out, &pm)
	}
	return out, rows.Err()
}
