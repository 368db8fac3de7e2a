package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
)

type repository[T academic.Model[T]] struct {
	db *DB
}

func NewRepository[T academic.Model[T]](db *DB) academic.Repository[T] {
	return &repository[T]{db: db}
}

func (repo *repository[T]) tableName() string {
	var zero T
	return zero.Table()
}

// visible must be called with the lock held.
func (repo *repository[T]) visible(tenantID *int64, id int64) (T, bool) {
	var zero T
	row, ok := repo.db.table(repo.tableName())[id]
	if !ok {
		return zero, false
	}
	rec := row.(T)
	if tenantID != nil && rec.Meta().CollegeID != *tenantID {
		return zero, false
	}
	return rec, true
}

func (repo *repository[T]) Find(_ context.Context, tenantID *int64, q academic.Query) ([]T, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]T, 0)
	for id := range repo.db.table(repo.tableName()) {
		rec, ok := repo.visible(tenantID, id)
		if !ok || !matches(rec, q.Filters) {
			continue
		}
		recs = append(recs, rec)
	}

	ordering := make([]core.DBOrdering, 0, len(q.Ordering)+1)
	ordering = append(ordering, q.Ordering...)
	ordering = append(ordering, core.DBOrdering{Field: "id", Ascending: true})
	sort.SliceStable(recs, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(column(recs[i], ord.Field), column(recs[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return recs, nil
}

func (repo *repository[T]) Get(_ context.Context, tenantID *int64, id int64) (T, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.visible(tenantID, id); ok {
		return rec, nil
	}
	var zero T
	return zero, core.ErrNotFound
}

func (repo *repository[T]) Create(_ context.Context, tenantID *int64, rec T) (T, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	meta := academic.Record{ID: repo.db.nextPK(), CreatedAt: now()}
	meta.UpdatedAt = meta.CreatedAt
	if tenantID != nil {
		meta.CollegeID = *tenantID
	}
	rec = rec.WithMeta(meta)
	repo.db.createTable(repo.tableName())[meta.ID] = rec
	return rec, nil
}

func (repo *repository[T]) Update(_ context.Context, tenantID *int64, id int64, rec T) (T, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	old, ok := repo.visible(tenantID, id)
	if !ok {
		var zero T
		return zero, core.ErrNotFound
	}
	meta := old.Meta()
	meta.UpdatedAt = now()
	rec = rec.WithMeta(meta)
	repo.db.table(repo.tableName())[id] = rec
	return rec, nil
}

func (repo *repository[T]) Delete(_ context.Context, tenantID *int64, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.visible(tenantID, id); !ok {
		return core.ErrNotFound
	}
	delete(repo.db.table(repo.tableName()), id)
	return nil
}

func (repo *repository[T]) Exists(_ context.Context, tenantID int64, ref academic.Ref) (bool, error) {
	return repo.db.exists(ref, tenantID), nil
}

func matches(e academic.Entity, filters map[string]int64) bool {
	vals := e.Values()
	for col, want := range filters {
		got, ok := asInt64(vals[col])
		if !ok || got != want {
			return false
		}
	}
	return true
}

func column(e academic.Entity, name string) interface{} {
	meta := e.Meta()
	switch name {
	case "id":
		return meta.ID
	case "created_at":
		return meta.CreatedAt
	case "updated_at":
		return meta.UpdatedAt
	case e.TenantColumn():
		return meta.CollegeID
	}
	return e.Values()[name]
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case *int64:
		if n != nil {
			return *n, true
		}
	case int:
		return int64(n), true
	}
	return 0, false
}

// compare orders column values of the same kind. NULLs come first.
func compare(a, b interface{}) int {
	if x, ok := asInt64(a); ok {
		y, ok := asInt64(b)
		switch {
		case !ok:
			return 1
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if _, ok := asInt64(b); ok {
		return -1
	}

	switch x := a.(type) {
	case time.Time:
		y, _ := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	case string:
		y, _ := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
