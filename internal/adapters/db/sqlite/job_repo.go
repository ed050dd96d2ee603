package sqlite

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/steveire/grantlee/internal/domain"
)

type JobRepo struct{ *Repo }

func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{NewRepo(db)} }

var jobColumns = []string{"id", "type", "status", "project_id", "provider_id", "params_json", "progress", "total", "created_at", "updated_at"}

func (r *JobRepo) Create(ctx context.Context, j *domain.Job) (int64, error) {
	ts := now()
	if j.ParamsRaw == "" {
		j.ParamsRaw = "{}"
	}
	q := r.SQ.Insert("jobs").Columns(jobColumns[1:]...).
		Values(j.Type, j.Status, j.ProjectID, j.ProviderID, j.ParamsRaw, j.Progress, j.Total, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	j.ID, _ = res.LastInsertId()
	j.CreatedAt, j.UpdatedAt = parseTime(ts), parseTime(ts)
	return j.ID, nil
}

func (r *JobRepo) UpdateProgress(ctx context.Context, jobID int64, done, total int, status string) error {
	q := r.SQ.Update("jobs").Set("progress", done).Set("total", total).Set("status", status).Set("updated_at", now()).
		Where(sq.Eq{"id": jobID})
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *JobRepo) AddItem(ctx context.Context, ji *domain.JobItem) (int64, error) {
	ts := now()
	q := r.SQ.Insert("job_items").Columns("job_id", "unit_id", "locale", "status", "error", "created_at", "updated_at").
		Values(ji.JobID, ji.UnitID, ji.Locale, ji.Status, ji.Error, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	ji.ID, _ = res.LastInsertId()
	return ji.ID, nil
}

func (r *JobRepo) UpdateItem(ctx context.Context, itemID int64, status, errMsg string) error {
	q := r.SQ.Update("job_items").Set("status", status).Set("error", errMsg).Set("updated_at", now()).
		Where(sq.Eq{"id": itemID})
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *JobRepo) AddLog(ctx context.Context, jl *domain.JobLog) error {
	q := r.SQ.Insert("job_logs").Columns("job_id", "ts", "level", "message").
		Values(jl.JobID, now(), jl.Level, jl.Message)
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

func scanJob(row interface{ Scan(...any) error }) (*domain.Job, error) {
	var j domain.Job
	var proj, prov sql.NullInt64
	var created, updated string
	if err := row.Scan(&j.ID, &j.Type, &j.Status, &proj, &prov, &j.ParamsRaw, &j.Progress, &j.Total, &created, &updated); err != nil {
		return nil, err
	}
	j.ProjectID, j.ProviderID = nullInt64(proj), nullInt64(prov)
	j.CreatedAt, j.UpdatedAt = parseTime(created), parseTime(updated)
	return &j, nil
}

func (r *JobRepo) Get(ctx context.Context, jobID int64) (*domain.Job, error) {
	sqlStr, args, _ := r.SQ.Select(jobColumns...).From("jobs").Where(sq.Eq{"id": jobID}).Limit(1).ToSql()
	j, err := scanJob(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "job")
	}
	return j, nil
}

func (r *JobRepo) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	sqlStr, args, _ := r.SQ.Select(jobColumns...).From("jobs").OrderBy("id DESC").Limit(uint64(limit)).ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *JobRepo) ListItems(ctx context.Context, jobID int64) ([]*domain.JobItem, error) {
	q := r.SQ.Select("id", "job_id", "unit_id", "locale", "status", "error", "created_at", "updated_at").
		From("job_items").Where(sq.Eq{"job_id": jobID}).OrderBy("id")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.JobItem
	for rows.Next() {
		var ji domain.JobItem
		var unit sql.NullInt64
		var loc sql.NullString
		var created, updated string
		if err := rows.Scan(&ji.ID, &ji.JobID, &unit, &loc, &ji.Status, &ji.Error, &created, &updated); err != nil {
			return nil, err
		}
		ji.UnitID = nullInt64(unit)
		if loc.Valid {
			v := loc.String
			ji.Locale = &v
		}
		ji.CreatedAt, ji.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, &ji)
	}
	return out, rows.Err()
}

// ListLogs returns the latest limit entries, oldest first.
func (r *JobRepo) ListLogs(ctx context.Context, jobID int64, limit int) ([]*domain.JobLog, error) {
	if limit <= 0 {
		limit = 200
	}
	q := r.SQ.Select("id", "job_id", "ts", "level", "message").From("job_logs").
		Where(sq.Eq{"job_id": jobID}).OrderBy("id DESC").Limit(uint64(limit))
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.JobLog
	for rows.Next() {
		var jl domain.JobLog
		var ts string
		if err := rows.Scan(&jl.ID, &jl.JobID, &ts, &jl.Level, &jl.Message); err != nil {
			return nil, err
		}
		jl.Time = parseTime(ts)
		out = append(out, &jl)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// Delete cascades to items and logs.
func (r *JobRepo) Delete(ctx context.Context, jobID int64) error {
	sqlStr, args, _ := r.SQ.Delete("jobs").Where(sq.Eq{"id": jobID}).ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}
