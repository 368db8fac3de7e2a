package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Filters holds the ID equality filters found in the query string.
type Filters map[string]int64

// Bind reads the query params named by `columns`. Non numeric values are reported as validation errors.
func (f Filters) Bind(ctx echo.Context, columns []string) error {
	var flds []core.FieldError
	for _, col := range columns {
		val := ctx.QueryParam(col)
		if val == "" {
			continue
		}
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			flds = append(flds, core.FieldError{Field: col, Error: "must be an integer"})
			continue
		}
		f[col] = id
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
