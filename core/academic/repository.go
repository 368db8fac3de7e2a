package academic

import (
	"context"

	"github.com/trezcool/academia/core"
)

// Query narrows a listing: Filters are equality matches on Entity.Filters columns.
type Query struct {
	Filters  map[string]int64
	Ordering []core.DBOrdering
}

// Repository stores the rows of one table.
// A nil tenantID means unscoped access; otherwise rows of other colleges do not exist (core.ErrNotFound).
type Repository[T any] interface {
	Find(ctx context.Context, tenantID *int64, q Query) ([]T, error)
	Get(ctx context.Context, tenantID *int64, id int64) (T, error)
	// Create inserts rec within tenantID; rec's own Record values are ignored.
	Create(ctx context.Context, tenantID *int64, rec T) (T, error)
	Update(ctx context.Context, tenantID *int64, id int64, rec T) (T, error)
	Delete(ctx context.Context, tenantID *int64, id int64) error
	// Exists reports whether the row ref points to belongs to the college (and has one of ref.Roles, if any).
	Exists(ctx context.Context, tenantID int64, ref Ref) (bool, error)
}
