package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/cupping-console/internal/repository"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

// BaseRepository provides common functionality for all repositories. db is
// either the pool or the transaction of the current unit of work.
type BaseRepository struct {
	db sqlx.ExtContext
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db sqlx.ExtContext) BaseRepository {
	return BaseRepository{db: db}
}

// WithTx executes a function within a transaction
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// get runs a single-row query, mapping sql.ErrNoRows to a NotFound error.
func (r *BaseRepository) get(ctx context.Context, resource string, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, r.db, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", resource, err)
	}
	return nil
}

// conditional runs an UPDATE ... RETURNING guarded by a WHERE clause. When the
// guard matches nothing it tells a missing row apart from a failed guard.
func (r *BaseRepository) conditional(ctx context.Context, resource, table string, id interface{}, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, r.db, dest, query, args...)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to update %s: %w", resource, err)
	}

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id); err != nil {
		return fmt.Errorf("failed to check %s: %w", resource, err)
	}
	if !exists {
		return apperrors.NotFound(resource, nil)
	}
	return repository.ErrConflict
}

// filter accumulates WHERE conditions with positional arguments.
type filter struct {
	conds []string
	args  []interface{}
}

func (f *filter) add(cond string, arg interface{}) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func (f *filter) limit(n int) string {
	if n <= 0 {
		return ""
	}
	f.args = append(f.args, n)
	return fmt.Sprintf(" LIMIT $%d", len(f.args))
}
