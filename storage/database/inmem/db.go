package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
)

// DB is a process local store, mostly used by tests. Every DB is independent.
type DB struct {
	mutex  sync.RWMutex
	pk     int64
	tables map[string]map[int64]interface{}
}

func Open() *DB {
	return &DB{tables: make(map[string]map[int64]interface{})}
}

// table must be called with the lock held. It is nil until the first insert.
func (db *DB) table(name string) map[int64]interface{} {
	return db.tables[name]
}

// createTable must be called with the write lock held.
func (db *DB) createTable(name string) map[int64]interface{} {
	t, ok := db.tables[name]
	if !ok {
		t = make(map[int64]interface{})
		db.tables[name] = t
	}
	return t
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int64 {
	db.pk++
	return db.pk
}

// tenantOf returns the college a stored row belongs to.
func tenantOf(row interface{}) (int64, bool) {
	switch r := row.(type) {
	case academic.Entity:
		return r.Meta().CollegeID, true
	case user.User:
		if r.CollegeID != nil {
			return *r.CollegeID, true
		}
	}
	return 0, false
}

func (db *DB) exists(ref academic.Ref, tenantID int64) bool {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	row, ok := db.tables[ref.Table][ref.ID]
	if !ok {
		return false
	}
	if tenant, ok := tenantOf(row); !ok || tenant != tenantID {
		return false
	}
	if len(ref.Roles) == 0 {
		return true
	}
	usr, ok := row.(user.User)
	return ok && usr.Role.In(ref.Roles...)
}

func now() time.Time {
	return time.Now().UTC()
}
