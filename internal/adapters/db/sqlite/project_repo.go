package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/steveire/grantlee/internal/domain"
)

type ProjectRepo struct{ *Repo }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{NewRepo(db)} }

var projectColumns = []string{"id", "name", "source_lang", "context", "created_at", "updated_at"}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	ts := now()
	q := r.SQ.Insert("projects").Columns("name", "source_lang", "context", "created_at", "updated_at").
		Values(p.Name, p.SourceLang, p.Context, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	p.ID, _ = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = parseTime(ts), parseTime(ts)
	return nil
}

func scanProject(row interface{ Scan(...any) error }) (*domain.Project, error) {
	var p domain.Project
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.SourceLang, &p.Context, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return &p, nil
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (*domain.Project, error) {
	sqlStr, args, _ := r.SQ.Select(projectColumns...).From("projects").Where(sq.Eq{"id": id}).ToSql()
	p, err := scanProject(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "project")
	}
	return p, nil
}

// GetByName looks a project up by its unique name.
func (r *ProjectRepo) GetByName(ctx context.Context, name string) (*domain.Project, error) {
	sqlStr, args, _ := r.SQ.Select(projectColumns...).From("projects").Where(sq.Eq{"name": name}).ToSql()
	p, err := scanProject(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "project "+name)
	}
	return p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	sqlStr, args, _ := r.SQ.Select(projectColumns...).From("projects").OrderBy("id DESC").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	ts := now()
	q := r.SQ.Update("projects").
		Set("name", p.Name).Set("source_lang", p.SourceLang).Set("context", p.Context).Set("updated_at", ts).
		Where(sq.Eq{"id": p.ID})
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	p.UpdatedAt = parseTime(ts)
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, _ := r.SQ.Delete("projects").Where(sq.Eq{"id": id}).ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

// AddLocale is idempotent per (project, locale).
func (r *ProjectRepo) AddLocale(ctx context.Context, pl *domain.ProjectLocale) error {
	ts := now()
	q := r.SQ.Insert("project_locales").Columns("project_id", "locale", "created_at").
		Values(pl.ProjectID, pl.Locale, ts).
		Suffix("ON CONFLICT(project_id, locale) DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	row := r.DB.QueryRowContext(ctx, `SELECT id, created_at FROM project_locales WHERE project_id = ? AND locale = ?`, pl.ProjectID, pl.Locale)
	var created string
	if err := row.Scan(&pl.ID, &created); err != nil {
		return err
	}
	pl.CreatedAt = parseTime(created)
	return nil
}

func (r *ProjectRepo) ListLocales(ctx context.Context, projectID int64) ([]*domain.ProjectLocale, error) {
	q := r.SQ.Select("id", "project_id", "locale", "created_at").From("project_locales").
		Where(sq.Eq{"project_id": projectID}).OrderBy("locale")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ProjectLocale
	for rows.Next() {
		var pl domain.ProjectLocale
		var created string
		if err := rows.Scan(&pl.ID, &pl.ProjectID, &pl.Locale, &created); err != nil {
			return nil, err
		}
		pl.CreatedAt = parseTime(created)
		out = append(out, &pl)
	}
	return out, rows.Err()
}
