package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

const (
	createClientTableSQL = `
		CREATE TABLE IF NOT EXISTS client (
			id BIGSERIAL PRIMARY KEY,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(100)
		)`

	// No primary key: a phone number only exists as a member of its client's set.
	createPhoneNumberTableSQL = `
		CREATE TABLE IF NOT EXISTS client_phone_number (
			client_id BIGINT NOT NULL REFERENCES client(id) ON DELETE CASCADE,
			phone_number VARCHAR(20)
		)`

	createPhoneNumberIndexSQL = `CREATE INDEX IF NOT EXISTS idx_client_phone_number_client_id ON client_phone_number(client_id)`

	dropPhoneNumberTableSQL = `DROP TABLE IF EXISTS client_phone_number`
	dropClientTableSQL      = `DROP TABLE IF EXISTS client`
)

// PgSchemaManager creates and drops the client tables.
type PgSchemaManager struct {
	db     PgxPool
	logger *slog.Logger
}

func NewPgSchemaManager(db PgxPool, logger *slog.Logger) *PgSchemaManager {
	return &PgSchemaManager{db: db, logger: logger}
}

// EnsureTables creates the client tables if they do not exist.
func (m *PgSchemaManager) EnsureTables(ctx context.Context) error {
	err := m.exec(ctx, createClientTableSQL, createPhoneNumberTableSQL, createPhoneNumberIndexSQL)
	if err != nil {
		m.logger.ErrorContext(ctx, "Error ensuring client tables", "error", err)
		return storeError("ensure tables", err)
	}
	m.logger.InfoContext(ctx, "Client tables ensured")
	return nil
}

// DropTables drops the client tables, child table first.
func (m *PgSchemaManager) DropTables(ctx context.Context) error {
	if err := m.exec(ctx, dropPhoneNumberTableSQL, dropClientTableSQL); err != nil {
		m.logger.ErrorContext(ctx, "Error dropping client tables", "error", err)
		return storeError("drop tables", err)
	}
	m.logger.InfoContext(ctx, "Client tables dropped")
	return nil
}

// Setup recreates the client tables. All existing client data is lost.
func (m *PgSchemaManager) Setup(ctx context.Context) error {
	if err := m.DropTables(ctx); err != nil {
		return err
	}
	return m.EnsureTables(ctx)
}

func (m *PgSchemaManager) exec(ctx context.Context, statements ...string) error {
	return withTx(ctx, m.db, m.logger, pgx.TxOptions{}, func(q Querier) error {
		for _, stmt := range statements {
			statementsTotal.WithLabelValues(stmtSchema).Inc()
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
