package sqlutil

import (
	"context"
	"database/sql"
)

// Run executes fn inside a *sql.Tx, binding it through wrap first.
// If fn returns an error the tx rolls back, else it commits.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	wrap func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(wrap(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
