package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

var userCols = []string{
	"id", "name", "email", "role", "college_id", "is_active", "password_hash", "created_at", "updated_at", "last_login",
}

func TestUserRepository_CheckEmailUniqueness(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM users WHERE email = $1 AND id NOT IN ($2,$3) )")).
		WithArgs("jo@example.com", int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.NoError(t, repo.CheckEmailUniqueness(context.Background(), "jo@example.com", 1, 2))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM users WHERE email = $1 )")).
		WithArgs("jo@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(context.Background(), "jo@example.com"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	query := regexp.QuoteMeta("INSERT INTO users (college_id,created_at,email,is_active,last_login,name,password_hash,role,updated_at)")
	now := time.Now().UTC()
	collegeID := int64(3)
	usr := user.User{
		Name:         "Jo",
		Email:        "jo@example.com",
		Role:         auth.RoleStaff,
		CollegeID:    &collegeID,
		IsActive:     true,
		PasswordHash: []byte("hash"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t.Run("ok", func(t *testing.T) {
		mock.ExpectQuery(query).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(1, "Jo", "jo@example.com", "STAFF", 3, true, []byte("hash"), now, now, nil))

		created, err := repo.CreateUser(context.Background(), usr)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, auth.RoleStaff, created.Role)
		require.NotNil(t, created.CollegeID)
		assert.Equal(t, collegeID, *created.CollegeID)
		assert.True(t, created.LastLogin.IsZero())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(&pq.Error{Code: uniqueViolation})

		_, err := repo.CreateUser(context.Background(), usr)
		assert.Equal(t, user.ErrEmailExists, err)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_QueryUsers(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()
	active := true
	collegeID := int64(3)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM users WHERE (name ILIKE $1 OR email ILIKE $2) AND role IN ($3,$4) AND is_active = $5 AND college_id = $6 ORDER BY id ASC",
	)).
		WithArgs("%jo%", "%jo%", "STAFF", "MEMBER", true, int64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, nil, "jo@example.com", "STAFF", 3, true, []byte("hash"), now, now, now))

	users, err := repo.QueryUsers(context.Background(), user.QueryFilter{
		Search:    "jo",
		Roles:     []auth.Role{auth.RoleStaff, auth.RoleMember},
		IsActive:  &active,
		CollegeID: &collegeID,
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].Name)
	assert.False(t, users[0].LastLogin.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE email = $1")).
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(9, "Admin", "admin@example.com", "ADMIN", nil, true, []byte("hash"), now, now, nil))
	usr, err := repo.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(9), usr.ID)
	assert.Nil(t, usr.CollegeID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(userCols))
	_, err = repo.GetUserByID(context.Background(), 10)
	assert.Equal(t, user.ErrNotFound, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(
		"UPDATE users SET college_id = $1, email = $2, is_active = $3, last_login = $4, name = $5, password_hash = $6, role = $7, updated_at = $8 WHERE id = $9 RETURNING *",
	)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(9, "Admin", "admin@example.com", "ADMIN", nil, true, []byte("hash"), now, now, now))

	usr, err := repo.UpdateUser(context.Background(), user.User{
		ID: 9, Name: "Admin", Email: "admin@example.com", Role: auth.RoleAdmin, IsActive: true, LastLogin: now,
	})
	require.NoError(t, err)
	assert.Equal(t, now, usr.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteUsersByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id IN ($1,$2)")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.DeleteUsersByID(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteUsersByID(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
