package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core/user"
)

const usersTable = "users"

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// query must be called with the lock held.
func (repo *userRepository) query() []user.User {
	table := repo.db.table(usersTable)
	users := make([]user.User, 0, len(table))
	for _, u := range table {
		users = append(users, u.(user.User))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...int64) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = repo.db.nextPK()
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now()
		usr.UpdatedAt = usr.CreatedAt
	}
	repo.db.createTable(usersTable)[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			continue
		}
		if len(filter.Roles) > 0 && !usr.Role.In(filter.Roles...) {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if filter.CollegeID != nil && (usr.CollegeID == nil || *usr.CollegeID != *filter.CollegeID) {
			continue
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int64) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table(usersTable)[id]; ok {
		return usr.(user.User), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	table := repo.db.table(usersTable)
	if _, ok := table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	table[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...int64) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	table := repo.db.table(usersTable)
	var cnt int
	for _, id := range ids {
		if _, ok := table[id]; ok {
			delete(table, id)
			cnt++
		}
	}
	return cnt, nil
}

func isExcluded(id int64, excludedIDs []int64) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}
