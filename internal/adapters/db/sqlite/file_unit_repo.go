package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/steveire/grantlee/internal/domain"
)

type FileRepo struct{ *Repo }
type UnitRepo struct{ *Repo }

func NewFileRepo(db *sql.DB) *FileRepo { return &FileRepo{NewRepo(db)} }
func NewUnitRepo(db *sql.DB) *UnitRepo { return &UnitRepo{NewRepo(db)} }

func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

var fileColumns = []string{"id", "project_id", "path", "format", "locale", "hash", "created_at"}

// Create inserts f, or refreshes format, locale and hash of the file
// already imported at the same path.
func (r *FileRepo) Create(ctx context.Context, f *domain.File) error {
	ts := now()
	q := r.SQ.Insert("files").Columns("project_id", "path", "format", "locale", "hash", "created_at").
		Values(f.ProjectID, f.Path, f.Format, f.Locale, f.Hash, ts).
		Suffix("ON CONFLICT(project_id, path) DO UPDATE SET format=excluded.format, locale=excluded.locale, hash=excluded.hash")
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	got, err := r.GetByPath(ctx, f.ProjectID, f.Path)
	if err != nil {
		return err
	}
	f.ID, f.CreatedAt = got.ID, got.CreatedAt
	return nil
}

func scanFile(row interface{ Scan(...any) error }) (*domain.File, error) {
	var f domain.File
	var created string
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Format, &f.Locale, &f.Hash, &created); err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(created)
	return &f, nil
}

func (r *FileRepo) Get(ctx context.Context, id int64) (*domain.File, error) {
	sqlStr, args, _ := r.SQ.Select(fileColumns...).From("files").Where(sq.Eq{"id": id}).ToSql()
	f, err := scanFile(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "file")
	}
	return f, nil
}

func (r *FileRepo) GetByPath(ctx context.Context, projectID int64, path string) (*domain.File, error) {
	sqlStr, args, _ := r.SQ.Select(fileColumns...).From("files").
		Where(sq.Eq{"project_id": projectID, "path": path}).ToSql()
	f, err := scanFile(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "file "+path)
	}
	return f, nil
}

func (r *FileRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.File, error) {
	sqlStr, args, _ := r.SQ.Select(fileColumns...).From("files").
		Where(sq.Eq{"project_id": projectID}).OrderBy("id DESC").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FileRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, _ := r.SQ.Delete("files").Where(sq.Eq{"id": id}).ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

var unitColumns = []string{"id", "file_id", "key", "context", "source_text", "comment", "old_source",
	"extra_comment", "translator_comment", "numerus", "locations_json", "position", "created_at"}

// batchSize keeps multi-row statements below SQLite's bound variable limit.
const batchSize = 500

// UpsertBatch inserts units keyed by (file_id, key) and fills in their IDs.
func (r *UnitRepo) UpsertBatch(ctx context.Context, units []*domain.Unit) error {
	return r.upsert(ctx, r.DB, units)
}

// ReplaceFile makes units the complete content of file fileID: it upserts
// them and deletes, in the same transaction, the units whose key is gone.
// Translations of deleted units go with them. It returns how many units
// were deleted.
func (r *UnitRepo) ReplaceFile(ctx context.Context, fileID int64, units []*domain.Unit) (int, error) {
	for _, u := range units {
		u.FileID = fileID
	}
	removed := 0
	err := WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := r.upsert(ctx, tx, units); err != nil {
			return err
		}
		keep := make(map[string]bool, len(units))
		for _, u := range units {
			keep[u.Key] = true
		}
		stale, err := r.staleIDs(ctx, tx, fileID, keep)
		if err != nil {
			return err
		}
		removed = len(stale)
		for len(stale) > 0 {
			n := min(len(stale), batchSize)
			sqlStr, args, _ := r.SQ.Delete("units").Where(sq.Eq{"id": stale[:n]}).ToSql()
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return err
			}
			stale = stale[n:]
		}
		return nil
	})
	return removed, errors.Wrap(err, "replace units")
}

func (r *UnitRepo) staleIDs(ctx context.Context, db dbtx, fileID int64, keep map[string]bool) ([]int64, error) {
	sqlStr, args, _ := r.SQ.Select("id", "key").From("units").Where(sq.Eq{"file_id": fileID}).ToSql()
	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stale []int64
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		if !keep[key] {
			stale = append(stale, id)
		}
	}
	return stale, rows.Err()
}

func (r *UnitRepo) upsert(ctx context.Context, db dbtx, units []*domain.Unit) error {
	for len(units) > batchSize {
		if err := r.upsert(ctx, db, units[:batchSize]); err != nil {
			return err
		}
		units = units[batchSize:]
	}
	if len(units) == 0 {
		return nil
	}
	ts := now()
	ib := r.SQ.Insert("units").Columns(unitColumns[1:]...)
	for _, u := range units {
		ib = ib.Values(u.FileID, u.Key, u.Context, u.SourceText, u.Comment, u.OldSource,
			u.ExtraComment, u.TranslatorComment, u.Numerus, marshalJSON(u.Locations), u.Position, ts)
	}
	sqlStr, args, _ := ib.Suffix(`ON CONFLICT(file_id, key) DO UPDATE SET
        context=excluded.context, source_text=excluded.source_text, comment=excluded.comment,
        old_source=excluded.old_source, extra_comment=excluded.extra_comment,
        translator_comment=excluded.translator_comment, numerus=excluded.numerus,
        locations_json=excluded.locations_json, position=excluded.position`).ToSql()
	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	for _, u := range units {
		got, err := r.getByKey(ctx, db, u.FileID, u.Key)
		if err != nil {
			return err
		}
		u.ID, u.CreatedAt = got.ID, got.CreatedAt
	}
	return nil
}

func scanUnit(row interface{ Scan(...any) error }) (*domain.Unit, error) {
	var u domain.Unit
	var locations, created string
	if err := row.Scan(&u.ID, &u.FileID, &u.Key, &u.Context, &u.SourceText, &u.Comment, &u.OldSource,
		&u.ExtraComment, &u.TranslatorComment, &u.Numerus, &locations, &u.Position, &created); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(locations, &u.Locations); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// ListByFile returns units in catalog order.
func (r *UnitRepo) ListByFile(ctx context.Context, fileID int64) ([]*domain.Unit, error) {
	sqlStr, args, _ := r.SQ.Select(unitColumns...).From("units").
		Where(sq.Eq{"file_id": fileID}).OrderBy("position", "id").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UnitRepo) Get(ctx context.Context, id int64) (*domain.Unit, error) {
	sqlStr, args, _ := r.SQ.Select(unitColumns...).From("units").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	u, err := scanUnit(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "unit")
	}
	return u, nil
}

func (r *UnitRepo) GetByKey(ctx context.Context, fileID int64, key string) (*domain.Unit, error) {
	return r.getByKey(ctx, r.DB, fileID, key)
}

func (r *UnitRepo) getByKey(ctx context.Context, db dbtx, fileID int64, key string) (*domain.Unit, error) {
	sqlStr, args, _ := r.SQ.Select(unitColumns...).From("units").
		Where(sq.Eq{"file_id": fileID, "key": key}).Limit(1).ToSql()
	u, err := scanUnit(db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return nil, notFound(err, "unit")
	}
	return u, nil
}
