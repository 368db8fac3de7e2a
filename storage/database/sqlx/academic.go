package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
)

type repository[T academic.Model[T]] struct {
	exec  sqlx.ExtContext
	table string
	// tenantCol is empty when the table is the tenant itself.
	tenantCol string
}

func NewRepository[T academic.Model[T]](exec sqlx.ExtContext) academic.Repository[T] {
	var zero T
	repo := &repository[T]{exec: exec, table: zero.Table()}
	if col := zero.TenantColumn(); col != "id" {
		repo.tenantCol = col
	}
	return repo
}

func (repo *repository[T]) scope(tenantID *int64) sq.Sqlizer {
	if tenantID == nil {
		return nil
	}
	if repo.tenantCol == "" {
		return sq.Eq{"id": *tenantID}
	}
	return sq.Eq{repo.tenantCol: *tenantID}
}

func (repo *repository[T]) Find(ctx context.Context, tenantID *int64, q academic.Query) ([]T, error) {
	qb := psql.Select("*").From(repo.table)
	if scope := repo.scope(tenantID); scope != nil {
		qb = qb.Where(scope)
	}
	if len(q.Filters) > 0 {
		filters := sq.Eq{}
		for col, val := range q.Filters {
			filters[col] = val
		}
		qb = qb.Where(filters)
	}
	for _, ord := range q.Ordering {
		qb = qb.OrderBy(ord.String())
	}
	qb = qb.OrderBy(core.DBOrdering{Field: "id", Ascending: true}.String())

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	recs := make([]T, 0)
	if err = sqlx.SelectContext(ctx, repo.exec, &recs, query, args...); err != nil {
		return nil, trapDBErr(err, "selecting "+repo.table)
	}
	return recs, nil
}

func (repo *repository[T]) Get(ctx context.Context, tenantID *int64, id int64) (T, error) {
	var rec T
	qb := psql.Select("*").From(repo.table).Where(sq.Eq{"id": id})
	if scope := repo.scope(tenantID); scope != nil {
		qb = qb.Where(scope)
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return rec, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.exec, &rec, query, args...); err != nil {
		return rec, trapNoRowsErr(err, core.ErrNotFound, "getting "+repo.table)
	}
	return rec, nil
}

func (repo *repository[T]) Create(ctx context.Context, tenantID *int64, rec T) (T, error) {
	var out T
	now := time.Now().UTC()
	values := rec.Values()
	values["created_at"] = now
	values["updated_at"] = now
	if repo.tenantCol != "" {
		if tenantID == nil {
			return out, errors.Errorf("inserting %s: no college", repo.table)
		}
		values[repo.tenantCol] = *tenantID
	}

	query, args, err := psql.Insert(repo.table).SetMap(values).Suffix("RETURNING *").ToSql()
	if err != nil {
		return out, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.exec, &out, query, args...); err != nil {
		if isUniqueViolation(err) {
			return out, core.NewValidationError(errDuplicate)
		}
		return out, trapDBErr(err, "inserting "+repo.table)
	}
	return out, nil
}

func (repo *repository[T]) Update(ctx context.Context, tenantID *int64, id int64, rec T) (T, error) {
	var out T
	values := rec.Values()
	values["updated_at"] = time.Now().UTC()

	qb := psql.Update(repo.table).SetMap(values).Where(sq.Eq{"id": id})
	if scope := repo.scope(tenantID); scope != nil {
		qb = qb.Where(scope)
	}
	query, args, err := qb.Suffix("RETURNING *").ToSql()
	if err != nil {
		return out, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.exec, &out, query, args...); err != nil {
		if isUniqueViolation(err) {
			return out, core.NewValidationError(errDuplicate)
		}
		return out, trapNoRowsErr(err, core.ErrNotFound, "updating "+repo.table)
	}
	return out, nil
}

func (repo *repository[T]) Delete(ctx context.Context, tenantID *int64, id int64) error {
	qb := psql.Delete(repo.table).Where(sq.Eq{"id": id})
	if scope := repo.scope(tenantID); scope != nil {
		qb = qb.Where(scope)
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return trapDBErr(err, "deleting "+repo.table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return trapDBErr(err, "counting deleted rows")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (repo *repository[T]) Exists(ctx context.Context, tenantID int64, ref academic.Ref) (bool, error) {
	tenantCol := "college_id"
	if ref.Table == (academic.College{}).Table() {
		tenantCol = "id"
	}
	qb := psql.Select("1").From(ref.Table).Where(sq.Eq{"id": ref.ID}).Where(sq.Eq{tenantCol: tenantID})
	if len(ref.Roles) > 0 {
		roles := make([]string, 0, len(ref.Roles))
		for _, role := range ref.Roles {
			roles = append(roles, role.String())
		}
		qb = qb.Where(sq.Eq{"role": roles})
	}
	query, args, err := existsQuery(qb).ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}

	var found bool
	if err = sqlx.GetContext(ctx, repo.exec, &found, query, args...); err != nil {
		return false, trapDBErr(err, "checking "+ref.Table)
	}
	return found, nil
}
