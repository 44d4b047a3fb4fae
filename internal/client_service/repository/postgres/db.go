package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

// Querier defines common methods for DB interaction, implemented by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the store handle the repositories are built on.
// *pgxpool.Pool and pgxmock.PgxPoolIface both satisfy it.
type PgxPool interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var readOnlyTx = pgx.TxOptions{AccessMode: pgx.ReadOnly}

// withTx runs fn in a transaction, committing on success and rolling back on error.
func withTx(ctx context.Context, db PgxPool, logger *slog.Logger, opts pgx.TxOptions, fn func(q Querier) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// storeError wraps a store failure with the operation name. Integrity violations
// (SQLSTATE class 23) and rejected values such as over-long strings or invalid
// UTF-8 (class 22) additionally match ErrConstraintViolation; the original
// *pgconn.PgError stays reachable via errors.As.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22")) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullableText maps the empty string to SQL NULL.
func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
