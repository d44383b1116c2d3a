package db

import (
	"context"
	"errors"

	"git.automatex.dev/stem/stemweb/src/oops"
	"github.com/jackc/pgx/v5"
)

/*
A general error to be used when no results are found. This is the error returned
by QueryOne, and can generally be used by other database helpers that fetch a single
result but find nothing.
*/
var NotFound = errors.New("not found")

// Query runs a query and maps each row onto T by `db` column tags.
func Query[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) ([]T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.New(err, "failed to execute query")
	}
	result, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, oops.New(err, "failed to read query results")
	}
	return result, nil
}

// QueryOne is like Query but expects exactly one row, returning NotFound if
// there is none.
func QueryOne[T any](ctx context.Context, conn ConnOrTx, query string, args ...any) (T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		var zero T
		return zero, oops.New(err, "failed to execute query")
	}
	result, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return result, NotFound
	} else if err != nil {
		return result, oops.New(err, "failed to read query result")
	}
	return result, nil
}
