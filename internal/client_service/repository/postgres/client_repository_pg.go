package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

const (
	insertClientSQL       = `INSERT INTO client (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING id`
	insertPhoneNumbersSQL = `INSERT INTO client_phone_number (client_id, phone_number) SELECT $1, unnest($2::varchar[])`
	insertPhoneNumberSQL  = `INSERT INTO client_phone_number (client_id, phone_number) VALUES ($1, $2)`
	selectClientSQL       = `SELECT id, first_name, last_name, email FROM client WHERE id = $1`
	selectPhoneNumbersSQL = `SELECT phone_number FROM client_phone_number WHERE client_id = $1`
	selectClientsSQL      = `SELECT id, first_name, last_name, email FROM client WHERE id = ANY($1)`
	selectClientPhonesSQL = `SELECT client_id, phone_number FROM client_phone_number WHERE client_id = ANY($1)`
	updateClientSQL       = `UPDATE client SET first_name = $1, last_name = $2, email = $3 WHERE id = $4`
	deletePhoneNumbersSQL = `DELETE FROM client_phone_number WHERE client_id = $1`
	deletePhoneNumberSQL  = `DELETE FROM client_phone_number WHERE client_id = $1 AND phone_number = $2`
	deleteClientSQL       = `DELETE FROM client WHERE id = $1`
	lockClientSQL         = `SELECT id FROM client WHERE id = $1 FOR UPDATE`
)

// PgClientRepository stores clients in the client and client_phone_number tables.
// Every method runs in a single transaction.
type PgClientRepository struct {
	db     PgxPool
	logger *slog.Logger
}

func NewPgClientRepository(db PgxPool, logger *slog.Logger) *PgClientRepository {
	return &PgClientRepository{db: db, logger: logger}
}

var _ domain.ClientRepository = (*PgClientRepository)(nil)

func (r *PgClientRepository) Add(ctx context.Context, fields domain.ContactFields) (*domain.Client, error) {
	var client *domain.Client
	err := withTx(ctx, r.db, r.logger, pgx.TxOptions{}, func(q Querier) error {
		var id int64
		statementsTotal.WithLabelValues(stmtInsertClient).Inc()
		err := q.QueryRow(ctx, insertClientSQL, fields.FirstName, fields.LastName, nullableText(fields.Email)).Scan(&id)
		if err != nil {
			return storeError("insert client", err)
		}
		if err := r.insertPhoneNumbers(ctx, q, id, fields.PhoneNumbers); err != nil {
			return err
		}
		client, err = r.reload(ctx, q, id)
		return err
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error adding client", "error", err, "last_name", fields.LastName)
		return nil, err
	}
	r.logger.InfoContext(ctx, "Client added successfully", "client_id", client.ID, "phone_numbers", len(client.PhoneNumbers))
	return client, nil
}

func (r *PgClientRepository) Load(ctx context.Context, id int64) (*domain.Client, bool, error) {
	var client *domain.Client
	err := withTx(ctx, r.db, r.logger, readOnlyTx, func(q Querier) error {
		var err error
		client, err = r.load(ctx, q, id)
		return err
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error loading client", "error", err, "client_id", id)
		return nil, false, err
	}
	if client == nil {
		r.logger.DebugContext(ctx, "Client not found", "client_id", id)
		return nil, false, nil
	}
	return client, true, nil
}

// LoadMany loads clients with exactly two queries regardless of len(ids):
// one for the client rows and one for all of their phone numbers.
func (r *PgClientRepository) LoadMany(ctx context.Context, ids []int64) (map[int64]*domain.Client, error) {
	if len(ids) == 0 {
		return map[int64]*domain.Client{}, nil
	}
	var clients map[int64]*domain.Client
	err := withTx(ctx, r.db, r.logger, readOnlyTx, func(q Querier) error {
		var err error
		clients, err = r.loadMany(ctx, q, ids)
		return err
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error loading clients", "error", err, "requested", len(ids))
		return nil, err
	}
	return clients, nil
}

// Update replaces the client's names, email and whole phone number set.
// The phone numbers are rewritten (delete all, insert all), not diffed.
func (r *PgClientRepository) Update(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if client == nil {
		return nil, errors.New("update client: nil client")
	}
	var updated *domain.Client
	err := withTx(ctx, r.db, r.logger, pgx.TxOptions{}, func(q Querier) error {
		statementsTotal.WithLabelValues(stmtUpdateClient).Inc()
		tag, err := q.Exec(ctx, updateClientSQL, client.FirstName, client.LastName, nullableText(client.Email), client.ID)
		if err != nil {
			return storeError("update client", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("client with ID=%d: %w", client.ID, domain.ErrNotFound)
		}
		statementsTotal.WithLabelValues(stmtDeletePhoneNumbers).Inc()
		if _, err := q.Exec(ctx, deletePhoneNumbersSQL, client.ID); err != nil {
			return storeError("delete phone numbers", err)
		}
		if err := r.insertPhoneNumbers(ctx, q, client.ID, client.PhoneNumbers); err != nil {
			return err
		}
		updated, err = r.reload(ctx, q, client.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "Client not found for update", "client_id", client.ID)
			return nil, err
		}
		r.logger.ErrorContext(ctx, "Error updating client", "error", err, "client_id", client.ID)
		return nil, err
	}
	r.logger.InfoContext(ctx, "Client updated successfully", "client_id", client.ID)
	return updated, nil
}

// Delete removes the client; its phone numbers go with it via ON DELETE CASCADE.
// Deleting a missing client is not an error.
func (r *PgClientRepository) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := withTx(ctx, r.db, r.logger, pgx.TxOptions{}, func(q Querier) error {
		statementsTotal.WithLabelValues(stmtDeleteClient).Inc()
		tag, err := q.Exec(ctx, deleteClientSQL, id)
		if err != nil {
			return storeError("delete client", err)
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting client", "error", err, "client_id", id)
		return err
	}
	if affected == 0 {
		r.logger.DebugContext(ctx, "Client to delete did not exist", "client_id", id)
		return nil
	}
	r.logger.InfoContext(ctx, "Client deleted successfully", "client_id", id)
	return nil
}

// AddPhoneNumber appends one phone number without checking for duplicates.
func (r *PgClientRepository) AddPhoneNumber(ctx context.Context, id int64, number string) (*domain.Client, bool, error) {
	return r.changePhoneNumber(ctx, "add phone number", id, func(q Querier) error {
		statementsTotal.WithLabelValues(stmtInsertPhoneNumber).Inc()
		if _, err := q.Exec(ctx, insertPhoneNumberSQL, id, number); err != nil {
			return storeError("insert phone number", err)
		}
		return nil
	})
}

// DeletePhoneNumber removes every occurrence of number from the client's set.
func (r *PgClientRepository) DeletePhoneNumber(ctx context.Context, id int64, number string) (*domain.Client, bool, error) {
	return r.changePhoneNumber(ctx, "delete phone number", id, func(q Querier) error {
		statementsTotal.WithLabelValues(stmtDeletePhoneNumber).Inc()
		if _, err := q.Exec(ctx, deletePhoneNumberSQL, id, number); err != nil {
			return storeError("delete phone number", err)
		}
		return nil
	})
}

// Search returns the clients matching every field of the filter.
// An empty filter performs no search and reports false.
func (r *PgClientRepository) Search(ctx context.Context, filter domain.SearchFilter) (map[int64]*domain.Client, bool, error) {
	if len(filter) == 0 {
		return nil, false, nil
	}
	pred, err := BuildSearchPredicate(filter)
	if err != nil {
		return nil, false, err
	}

	var clients map[int64]*domain.Client
	err = withTx(ctx, r.db, r.logger, readOnlyTx, func(q Querier) error {
		statementsTotal.WithLabelValues(stmtSearchClients).Inc()
		rows, err := q.Query(ctx, pred.SQL(), pred.Args...)
		if err != nil {
			return storeError("search clients", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return storeError("scan client ids", err)
		}
		if len(ids) == 0 {
			clients = map[int64]*domain.Client{}
			return nil
		}
		clients, err = r.loadMany(ctx, q, ids)
		return err
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error searching clients", "error", err, "join", pred.NeedsJoin)
		return nil, false, err
	}
	r.logger.DebugContext(ctx, "Clients searched", "fields", len(filter), "join", pred.NeedsJoin, "matches", len(clients))
	return clients, true, nil
}

// changePhoneNumber locks the client row so single-number changes serialize
// with Update's delete-then-insert, applies change and reloads the client.
func (r *PgClientRepository) changePhoneNumber(ctx context.Context, op string, id int64, change func(q Querier) error) (*domain.Client, bool, error) {
	var client *domain.Client
	err := withTx(ctx, r.db, r.logger, pgx.TxOptions{}, func(q Querier) error {
		var locked int64
		statementsTotal.WithLabelValues(stmtLockClient).Inc()
		err := q.QueryRow(ctx, lockClientSQL, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storeError("lock client", err)
		}
		if err := change(q); err != nil {
			return err
		}
		client, err = r.reload(ctx, q, id)
		return err
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Error changing phone numbers", "error", err, "operation", op, "client_id", id)
		return nil, false, err
	}
	if client == nil {
		r.logger.WarnContext(ctx, "Client not found for phone number change", "operation", op, "client_id", id)
		return nil, false, nil
	}
	r.logger.InfoContext(ctx, "Client phone numbers changed", "operation", op, "client_id", id)
	return client, true, nil
}

func (r *PgClientRepository) insertPhoneNumbers(ctx context.Context, q Querier, id int64, numbers []string) error {
	if len(numbers) == 0 {
		return nil
	}
	statementsTotal.WithLabelValues(stmtInsertPhoneNumbers).Inc()
	if _, err := q.Exec(ctx, insertPhoneNumbersSQL, id, numbers); err != nil {
		return storeError("insert phone numbers", err)
	}
	return nil
}

// reload loads a client that was just written in the same transaction.
func (r *PgClientRepository) reload(ctx context.Context, q Querier, id int64) (*domain.Client, error) {
	client, err := r.load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("reload client with ID=%d: row vanished inside transaction", id)
	}
	return client, nil
}

// load returns nil, nil when the client does not exist.
func (r *PgClientRepository) load(ctx context.Context, q Querier, id int64) (*domain.Client, error) {
	client := &domain.Client{}
	var email pgtype.Text
	statementsTotal.WithLabelValues(stmtSelectClient).Inc()
	err := q.QueryRow(ctx, selectClientSQL, id).Scan(&client.ID, &client.FirstName, &client.LastName, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("select client", err)
	}
	client.Email = email.String

	statementsTotal.WithLabelValues(stmtSelectPhoneNumbers).Inc()
	rows, err := q.Query(ctx, selectPhoneNumbersSQL, id)
	if err != nil {
		return nil, storeError("select phone numbers", err)
	}
	defer rows.Close()

	client.PhoneNumbers = []string{}
	for rows.Next() {
		var number pgtype.Text
		if err := rows.Scan(&number); err != nil {
			return nil, storeError("scan phone number", err)
		}
		if number.Valid {
			client.PhoneNumbers = append(client.PhoneNumbers, number.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate phone numbers", err)
	}
	return client, nil
}

func (r *PgClientRepository) loadMany(ctx context.Context, q Querier, ids []int64) (map[int64]*domain.Client, error) {
	statementsTotal.WithLabelValues(stmtSelectClients).Inc()
	rows, err := q.Query(ctx, selectClientsSQL, ids)
	if err != nil {
		return nil, storeError("select clients", err)
	}
	clients := make(map[int64]*domain.Client, len(ids))
	for rows.Next() {
		client := &domain.Client{PhoneNumbers: []string{}}
		var email pgtype.Text
		if err := rows.Scan(&client.ID, &client.FirstName, &client.LastName, &email); err != nil {
			rows.Close()
			return nil, storeError("scan client", err)
		}
		client.Email = email.String
		clients[client.ID] = client
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate clients", err)
	}

	statementsTotal.WithLabelValues(stmtSelectClientPhones).Inc()
	phoneRows, err := q.Query(ctx, selectClientPhonesSQL, ids)
	if err != nil {
		return nil, storeError("select phone numbers", err)
	}
	defer phoneRows.Close()
	for phoneRows.Next() {
		var clientID int64
		var number pgtype.Text
		if err := phoneRows.Scan(&clientID, &number); err != nil {
			return nil, storeError("scan phone number", err)
		}
		if client, ok := clients[clientID]; ok && number.Valid {
			client.PhoneNumbers = append(client.PhoneNumbers, number.String)
		}
	}
	if err := phoneRows.Err(); err != nil {
		return nil, storeError("iterate phone numbers", err)
	}
	return clients, nil
}
