// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	uniqueViolation = "23505"
	// class 57P: admin_shutdown, crash_shutdown, cannot_connect_now...
	operatorIntervention = "57P"
)

var errDuplicate = errors.New("a record with these values already exists")

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return trapDBErr(err, msg)
}

// trapDBErr wraps err, turning a lost database into a shutdown error.
func trapDBErr(err error, msg string) error {
	cause := errors.Cause(err)
	if pqErr, ok := cause.(*pq.Error); ok && strings.HasPrefix(string(pqErr.Code), operatorIntervention) {
		return errors.Wrap(core.NewShutdownError(pqErr.Message), msg)
	}
	if cause == sql.ErrConnDone {
		return errors.Wrap(core.NewShutdownError(cause.Error()), msg)
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// existsQuery wraps qb in SELECT EXISTS.
func existsQuery(qb sq.SelectBuilder) sq.SelectBuilder {
	return qb.Prefix("SELECT EXISTS (").Suffix(")")
}
