package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

const usersTable = "users"

type userRow struct {
	ID           int64       `db:"id"`
	Name         null.String `db:"name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	CollegeID    null.Int64  `db:"college_id"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         null.NewString(usr.Name, usr.Name != ""),
		Email:        usr.Email,
		Role:         usr.Role.String(),
		CollegeID:    null.Int64FromPtr(usr.CollegeID),
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) user() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name.String,
		Email:        row.Email,
		Role:         auth.Role(row.Role),
		CollegeID:    row.CollegeID.Ptr(),
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (row userRow) values() map[string]interface{} {
	return map[string]interface{}{
		"name":          row.Name,
		"email":         row.Email,
		"role":          row.Role,
		"college_id":    row.CollegeID,
		"is_active":     row.IsActive,
		"password_hash": row.PasswordHash,
		"created_at":    row.CreatedAt,
		"updated_at":    row.UpdatedAt,
		"last_login":    row.LastLogin,
	}
}

type userRepository struct {
	exec sqlx.ExtContext
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec sqlx.ExtContext) user.Repository {
	return &userRepository{exec: exec}
}

func (repo *userRepository) get(ctx context.Context, where sq.Sqlizer) (user.User, error) {
	query, args, err := psql.Select("*").From(usersTable).Where(where).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err = sqlx.GetContext(ctx, repo.exec, &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int64) error {
	qb := psql.Select("1").From(usersTable).Where(sq.Eq{"email": email})
	if len(excludedIDs) > 0 {
		qb = qb.Where(sq.NotEq{"id": excludedIDs})
	}
	query, args, err := existsQuery(qb).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var exists bool
	if err = sqlx.GetContext(ctx, repo.exec, &exists, query, args...); err != nil {
		return trapDBErr(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert(usersTable).SetMap(toRow(usr).values()).Suffix("RETURNING *").ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err = sqlx.GetContext(ctx, repo.exec, &row, query, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapDBErr(err, "inserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	qb := psql.Select("*").From(usersTable)
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		qb = qb.Where(sq.Or{sq.ILike{"name": val}, sq.ILike{"email": val}})
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, role.String())
		}
		qb = qb.Where(sq.Eq{"role": roles})
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if filter.CollegeID != nil {
		qb = qb.Where(sq.Eq{"college_id": *filter.CollegeID})
	}

	query, args, err := qb.OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.exec, &rows, query, args...); err != nil {
		return nil, trapDBErr(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return repo.get(ctx, sq.Eq{"id": id})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, sq.Eq{"email": email})
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	values := toRow(usr).values()
	delete(values, "created_at")
	query, args, err := psql.Update(usersTable).
		SetMap(values).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err = sqlx.GetContext(ctx, repo.exec, &row, query, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.user(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete(usersTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, trapDBErr(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, trapDBErr(err, "counting deleted users")
	}
	return int(n), nil
}
