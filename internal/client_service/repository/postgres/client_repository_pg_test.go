package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

func setupClientRepoTest(t *testing.T) (*PgClientRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewPgClientRepository(mockPool, logger)
	return repo, mockPool
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// expectLoad registers the two queries of a single-client load.
// email may be nil for a NULL column.
func expectLoad(mockPool pgxmock.PgxPoolIface, id int64, first, last string, email any, phones ...string) {
	mockPool.ExpectQuery(selectClientSQL).
		WithArgs(id).
		WillReturnRows(mockPool.NewRows([]string{"id", "first_name", "last_name", "email"}).AddRow(id, first, last, email))
	phoneRows := mockPool.NewRows([]string{"phone_number"})
	for _, p := range phones {
		phoneRows.AddRow(p)
	}
	mockPool.ExpectQuery(selectPhoneNumbersSQL).WithArgs(id).WillReturnRows(phoneRows)
}

func TestPgClientRepository_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("WithPhoneNumbers", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertClientSQL).
			WithArgs("Michael", "Keaton", text("m.keaton@hollywood.com")).
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(1)))
		mockPool.ExpectExec(insertPhoneNumbersSQL).
			WithArgs(int64(1), []string{"+12222222222"}).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		expectLoad(mockPool, 1, "Michael", "Keaton", "m.keaton@hollywood.com", "+12222222222")
		mockPool.ExpectCommit()

		client, err := repo.Add(ctx, domain.ContactFields{
			FirstName:    "Michael",
			LastName:     "Keaton",
			Email:        "m.keaton@hollywood.com",
			PhoneNumbers: []string{"+12222222222"},
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		assert.Equal(t, "(1) Michael Keaton <m.keaton@hollywood.com> [+12222222222]", client.String())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NamesOnlySkipsPhoneInsert", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertClientSQL).
			WithArgs("Rafael", "Nadal", pgtype.Text{}).
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(4)))
		expectLoad(mockPool, 4, "Rafael", "Nadal", nil)
		mockPool.ExpectCommit()

		client, err := repo.Add(ctx, domain.ContactFields{FirstName: "Rafael", LastName: "Nadal"})
		require.NoError(t, err)
		assert.Equal(t, "(4) Rafael Nadal", client.String())
		assert.Empty(t, client.PhoneNumbers)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ConstraintViolation", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		pgErr := &pgconn.PgError{Code: "23502", Message: `null value in column "last_name" violates not-null constraint`}
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertClientSQL).
			WithArgs("Bruce", "", pgtype.Text{}).
			WillReturnError(pgErr)
		mockPool.ExpectRollback()

		client, err := repo.Add(ctx, domain.ContactFields{FirstName: "Bruce"})
		require.Error(t, err)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, domain.ErrConstraintViolation)
		var got *pgconn.PgError
		require.True(t, errors.As(err, &got))
		assert.Equal(t, "23502", got.Code)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("PhoneInsertFailureRollsBackParent", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		tooLong := &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(20)"}
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(insertClientSQL).
			WithArgs("Some", "Guy", text("s.guy@guys.ru")).
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(3)))
		mockPool.ExpectExec(insertPhoneNumbersSQL).
			WithArgs(int64(3), []string{"+7111111111111111111111"}).
			WillReturnError(tooLong)
		mockPool.ExpectRollback()

		_, err := repo.Add(ctx, domain.ContactFields{
			FirstName: "Some", LastName: "Guy", Email: "s.guy@guys.ru",
			PhoneNumbers: []string{"+7111111111111111111111"},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConstraintViolation)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgClientRepository_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBeginTx(readOnlyTx)
		expectLoad(mockPool, 2, "Bruce", "Dickinson", "b.dickinson@ironmaiden.com", "+441111111111", "+442222222222")
		mockPool.ExpectCommit()

		client, found, err := repo.Load(ctx, 2)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(2), client.ID)
		assert.Equal(t, "b.dickinson@ironmaiden.com", client.Email)
		assert.ElementsMatch(t, []string{"+442222222222", "+441111111111"}, client.PhoneNumbers)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(selectClientSQL).WithArgs(int64(3)).WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectCommit()

		client, found, err := repo.Load(ctx, 3)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, client)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		dbErr := errors.New("connection refused")
		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(selectClientSQL).WithArgs(int64(3)).WillReturnError(dbErr)
		mockPool.ExpectRollback()

		client, found, err := repo.Load(ctx, 3)
		require.Error(t, err)
		assert.False(t, found)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, domain.ErrConstraintViolation)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("BeginFails", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		dbErr := errors.New("dial tcp: connection refused")
		mockPool.ExpectBeginTx(readOnlyTx).WillReturnError(dbErr)

		_, _, err := repo.Load(ctx, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgClientRepository_LoadMany(t *testing.T) {
	ctx := context.Background()

	t.Run("OnlyExistingIDs", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		ids := []int64{1, 2, 999}
		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(selectClientsSQL).
			WithArgs(ids).
			WillReturnRows(mockPool.NewRows([]string{"id", "first_name", "last_name", "email"}).
				AddRow(int64(1), "Michael", "Keaton", "m.keaton@hollywood.com").
				AddRow(int64(2), "Bruce", "Dickinson", "b.dickinson@ironmaiden.com"))
		mockPool.ExpectQuery(selectClientPhonesSQL).
			WithArgs(ids).
			WillReturnRows(mockPool.NewRows([]string{"client_id", "phone_number"}).
				AddRow(int64(2), "+441111111111").
				AddRow(int64(1), "+13333333333").
				AddRow(int64(2), "+442222222222"))
		mockPool.ExpectCommit()

		clients, err := repo.LoadMany(ctx, ids)
		require.NoError(t, err)
		require.Len(t, clients, 2)
		assert.NotContains(t, clients, int64(999))
		assert.Equal(t, "(1) Michael Keaton <m.keaton@hollywood.com> [+13333333333]", clients[1].String())
		assert.ElementsMatch(t, []string{"+441111111111", "+442222222222"}, clients[2].PhoneNumbers)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("EmptyIDsIssueNoQueries", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		clients, err := repo.LoadMany(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, clients)
		assert.Empty(t, clients)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("PhoneQueryFails", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		ids := []int64{1}
		dbErr := errors.New("database error")
		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(selectClientsSQL).
			WithArgs(ids).
			WillReturnRows(mockPool.NewRows([]string{"id", "first_name", "last_name", "email"}).
				AddRow(int64(1), "Michael", "Keaton", nil))
		mockPool.ExpectQuery(selectClientPhonesSQL).WithArgs(ids).WillReturnError(dbErr)
		mockPool.ExpectRollback()

		clients, err := repo.LoadMany(ctx, ids)
		require.Error(t, err)
		assert.Nil(t, clients)
		assert.Contains(t, err.Error(), dbErr.Error())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

// TestPgClientRepository_LoadManyQueryCount checks the batching bound: two
// queries whether one or a thousand clients are requested.
func TestPgClientRepository_LoadManyQueryCount(t *testing.T) {
	for _, n := range []int{1, 1000} {
		n := n
		t.Run("", func(t *testing.T) {
			repo, mockPool := setupClientRepoTest(t)
			defer mockPool.Close()

			ids := make([]int64, n)
			clientRows := mockPool.NewRows([]string{"id", "first_name", "last_name", "email"})
			phoneRows := mockPool.NewRows([]string{"client_id", "phone_number"})
			for i := range ids {
				ids[i] = int64(i + 1)
				clientRows.AddRow(ids[i], "First", "Last", nil)
				phoneRows.AddRow(ids[i], "+10000000000").AddRow(ids[i], "+10000000001")
			}
			mockPool.ExpectBeginTx(readOnlyTx)
			mockPool.ExpectQuery(selectClientsSQL).WithArgs(ids).WillReturnRows(clientRows)
			mockPool.ExpectQuery(selectClientPhonesSQL).WithArgs(ids).WillReturnRows(phoneRows)
			mockPool.ExpectCommit()

			clientsBefore := testutil.ToFloat64(statementsTotal.WithLabelValues(stmtSelectClients))
			phonesBefore := testutil.ToFloat64(statementsTotal.WithLabelValues(stmtSelectClientPhones))
			singleBefore := testutil.ToFloat64(statementsTotal.WithLabelValues(stmtSelectPhoneNumbers))

			clients, err := repo.LoadMany(context.Background(), ids)
			require.NoError(t, err)
			assert.Len(t, clients, n)
			assert.Len(t, clients[int64(n)].PhoneNumbers, 2)

			assert.Equal(t, 1.0, testutil.ToFloat64(statementsTotal.WithLabelValues(stmtSelectClients))-clientsBefore)
			assert.Equal(t, 1.0, testutil.ToFloat64(statementsTotal.WithLabelValues(stmtSelectClientPhones))-phonesBefore)
			assert.Equal(t, 0.0, testutil.ToFloat64(statementsTotal.WithLabelValues(stmtSelectPhoneNumbers))-singleBefore)
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}

func TestPgClientRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFoundLeavesPhoneNumbersUntouched", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(updateClientSQL).
			WithArgs("Rafael", "Nadal Parera", text("r.nadal@rafaelnadal.com"), int64(999)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectRollback()

		client, err := repo.Update(ctx, &domain.Client{
			ID: 999, FirstName: "Rafael", LastName: "Nadal Parera", Email: "r.nadal@rafaelnadal.com",
			PhoneNumbers: []string{"+341111111111"},
		})
		require.Error(t, err)
		assert.Nil(t, client)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "ID=999")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ReplacesPhoneNumbers", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		phones := []string{"+341111111111", "+342222222222"}
		mockPool.ExpectBegin()
		mockPool.ExpectExec(updateClientSQL).
			WithArgs("Rafael", "Nadal Parera", text("r.nadal@rafaelnadal.com"), int64(4)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec(deletePhoneNumbersSQL).WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectExec(insertPhoneNumbersSQL).WithArgs(int64(4), phones).WillReturnResult(pgxmock.NewResult("INSERT", 2))
		expectLoad(mockPool, 4, "Rafael", "Nadal Parera", "r.nadal@rafaelnadal.com", phones...)
		mockPool.ExpectCommit()

		client, err := repo.Update(ctx, &domain.Client{
			ID: 4, FirstName: "Rafael", LastName: "Nadal Parera", Email: "r.nadal@rafaelnadal.com", PhoneNumbers: phones,
		})
		require.NoError(t, err)
		assert.Equal(t, "(4) Rafael Nadal Parera <r.nadal@rafaelnadal.com> [+341111111111, +342222222222]", client.String())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ShorterListRemovesNumbers", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(updateClientSQL).
			WithArgs("Bruce", "Dickinson", text("b.dickinson@ironmaiden.com"), int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec(deletePhoneNumbersSQL).WithArgs(int64(2)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mockPool.ExpectExec(insertPhoneNumbersSQL).
			WithArgs(int64(2), []string{"+441111111111"}).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		expectLoad(mockPool, 2, "Bruce", "Dickinson", "b.dickinson@ironmaiden.com", "+441111111111")
		mockPool.ExpectCommit()

		client, err := repo.Update(ctx, &domain.Client{
			ID: 2, FirstName: "Bruce", LastName: "Dickinson", Email: "b.dickinson@ironmaiden.com",
			PhoneNumbers: []string{"+441111111111"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"+441111111111"}, client.PhoneNumbers)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicatesAreInsertedAsListed", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		phones := []string{"+13333333333", "+13333333333"}
		mockPool.ExpectBegin()
		mockPool.ExpectExec(updateClientSQL).
			WithArgs("Michael", "Keaton", text("m.keaton@hollywood.com"), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec(deletePhoneNumbersSQL).WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mockPool.ExpectExec(insertPhoneNumbersSQL).WithArgs(int64(1), phones).WillReturnResult(pgxmock.NewResult("INSERT", 2))
		expectLoad(mockPool, 1, "Michael", "Keaton", "m.keaton@hollywood.com", phones...)
		mockPool.ExpectCommit()

		client, err := repo.Update(ctx, &domain.Client{
			ID: 1, FirstName: "Michael", LastName: "Keaton", Email: "m.keaton@hollywood.com", PhoneNumbers: phones,
		})
		require.NoError(t, err)
		assert.Equal(t, phones, client.PhoneNumbers)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("EmptyListClearsNumbers", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(updateClientSQL).
			WithArgs("Rafael", "Nadal", pgtype.Text{}, int64(4)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec(deletePhoneNumbersSQL).WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
		expectLoad(mockPool, 4, "Rafael", "Nadal", nil)
		mockPool.ExpectCommit()

		client, err := repo.Update(ctx, &domain.Client{ID: 4, FirstName: "Rafael", LastName: "Nadal"})
		require.NoError(t, err)
		assert.Empty(t, client.PhoneNumbers)
		assert.Empty(t, client.Email)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NilClient", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		_, err := repo.Update(ctx, nil)
		require.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgClientRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(deleteClientSQL).WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mockPool.ExpectCommit()

		require.NoError(t, repo.Delete(ctx, 3))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("MissingIsNoOp", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(deleteClientSQL).WithArgs(int64(42)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectCommit()

		require.NoError(t, repo.Delete(ctx, 42))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		dbErr := errors.New("database error")
		mockPool.ExpectBegin()
		mockPool.ExpectExec(deleteClientSQL).WithArgs(int64(3)).WillReturnError(dbErr)
		mockPool.ExpectRollback()

		err := repo.Delete(ctx, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgClientRepository_PhoneNumbers(t *testing.T) {
	ctx := context.Background()

	t.Run("AddPhoneNumber", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(lockClientSQL).WithArgs(int64(1)).WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(1)))
		mockPool.ExpectExec(insertPhoneNumberSQL).WithArgs(int64(1), "+13333333333").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		expectLoad(mockPool, 1, "Michael", "Keaton", "m.keaton@hollywood.com", "+12222222222", "+13333333333")
		mockPool.ExpectCommit()

		client, found, err := repo.AddPhoneNumber(ctx, 1, "+13333333333")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "(1) Michael Keaton <m.keaton@hollywood.com> [+12222222222, +13333333333]", client.String())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DeletePhoneNumber", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(lockClientSQL).WithArgs(int64(1)).WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(1)))
		mockPool.ExpectExec(deletePhoneNumberSQL).WithArgs(int64(1), "+12222222222").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		expectLoad(mockPool, 1, "Michael", "Keaton", "m.keaton@hollywood.com", "+13333333333")
		mockPool.ExpectCommit()

		client, found, err := repo.DeletePhoneNumber(ctx, 1, "+12222222222")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "(1) Michael Keaton <m.keaton@hollywood.com> [+13333333333]", client.String())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("MissingClientIsNoOp", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(lockClientSQL).WithArgs(int64(77)).WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectCommit()

		client, found, err := repo.AddPhoneNumber(ctx, 77, "+10000000000")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, client)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DeleteFromMissingClientIsNoOp", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(lockClientSQL).WithArgs(int64(77)).WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectCommit()

		client, found, err := repo.DeletePhoneNumber(ctx, 77, "+10000000000")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, client)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DeleteRemovesAllDuplicates", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(lockClientSQL).WithArgs(int64(1)).WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(1)))
		mockPool.ExpectExec(deletePhoneNumberSQL).WithArgs(int64(1), "+12222222222").WillReturnResult(pgxmock.NewResult("DELETE", 2))
		expectLoad(mockPool, 1, "Michael", "Keaton", "m.keaton@hollywood.com", "+13333333333")
		mockPool.ExpectCommit()

		client, found, err := repo.DeletePhoneNumber(ctx, 1, "+12222222222")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []string{"+13333333333"}, client.PhoneNumbers)
		assert.NotContains(t, client.PhoneNumbers, "+12222222222")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("InsertFailureRollsBack", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		tooLong := &pgconn.PgError{Code: "22001"}
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(lockClientSQL).WithArgs(int64(1)).WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(1)))
		mockPool.ExpectExec(insertPhoneNumberSQL).WithArgs(int64(1), "+123456789012345678901").WillReturnError(tooLong)
		mockPool.ExpectRollback()

		_, found, err := repo.AddPhoneNumber(ctx, 1, "+123456789012345678901")
		require.Error(t, err)
		assert.False(t, found)
		assert.ErrorIs(t, err, domain.ErrConstraintViolation)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgClientRepository_Search(t *testing.T) {
	ctx := context.Background()
	clientCols := []string{"id", "first_name", "last_name", "email"}
	phoneCols := []string{"client_id", "phone_number"}

	t.Run("EmptyFilterPerformsNoSearch", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		clients, performed, err := repo.Search(ctx, domain.SearchFilter{})
		require.NoError(t, err)
		assert.False(t, performed)
		assert.Nil(t, clients)

		clients, performed, err = repo.Search(ctx, nil)
		require.NoError(t, err)
		assert.False(t, performed)
		assert.Nil(t, clients)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NoMatchesIsEmptyResult", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(`SELECT DISTINCT c.id FROM client c WHERE c.first_name ILIKE $1`).
			WithArgs("zzz").
			WillReturnRows(mockPool.NewRows([]string{"id"}))
		mockPool.ExpectCommit()

		clients, performed, err := repo.Search(ctx, domain.SearchFilter{domain.SearchFieldFirstName: "zzz"})
		require.NoError(t, err)
		assert.True(t, performed)
		assert.NotNil(t, clients)
		assert.Empty(t, clients)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("LastNameSuffix", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		ids := []int64{1, 2}
		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(`SELECT DISTINCT c.id FROM client c WHERE c.last_name ILIKE $1`).
			WithArgs("%on").
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
		mockPool.ExpectQuery(selectClientsSQL).WithArgs(ids).
			WillReturnRows(mockPool.NewRows(clientCols).
				AddRow(int64(1), "Michael", "Keaton", "m.keaton@hollywood.com").
				AddRow(int64(2), "Bruce", "Dickinson", "b.dickinson@ironmaiden.com"))
		mockPool.ExpectQuery(selectClientPhonesSQL).WithArgs(ids).
			WillReturnRows(mockPool.NewRows(phoneCols).
				AddRow(int64(1), "+13333333333").
				AddRow(int64(2), "+441111111111").
				AddRow(int64(2), "+442222222222"))
		mockPool.ExpectCommit()

		clients, performed, err := repo.Search(ctx, domain.SearchFilter{domain.SearchFieldLastName: "%on"})
		require.NoError(t, err)
		assert.True(t, performed)
		require.Len(t, clients, 2)
		assert.Equal(t, "Keaton", clients[1].LastName)
		assert.Equal(t, "Dickinson", clients[2].LastName)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("PhoneNumberUsesJoin", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		ids := []int64{2, 4}
		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(`SELECT DISTINCT c.id FROM client c JOIN client_phone_number cpn ON c.id = cpn.client_id WHERE cpn.phone_number ILIKE $1`).
			WithArgs("%1111111111").
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(2)).AddRow(int64(4)))
		mockPool.ExpectQuery(selectClientsSQL).WithArgs(ids).
			WillReturnRows(mockPool.NewRows(clientCols).
				AddRow(int64(2), "Bruce", "Dickinson", "b.dickinson@ironmaiden.com").
				AddRow(int64(4), "Rafael", "Nadal Parera", "r.nadal@rafaelnadal.com"))
		mockPool.ExpectQuery(selectClientPhonesSQL).WithArgs(ids).
			WillReturnRows(mockPool.NewRows(phoneCols).
				AddRow(int64(2), "+441111111111").
				AddRow(int64(2), "+442222222222").
				AddRow(int64(4), "+341111111111").
				AddRow(int64(4), "+342222222222"))
		mockPool.ExpectCommit()

		clients, performed, err := repo.Search(ctx, domain.SearchFilter{domain.SearchFieldPhoneNumber: "%1111111111"})
		require.NoError(t, err)
		assert.True(t, performed)
		require.Len(t, clients, 2)
		assert.Equal(t, "(4) Rafael Nadal Parera <r.nadal@rafaelnadal.com> [+341111111111, +342222222222]", clients[4].String())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("MultipleFieldsAreANDed", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		mockPool.ExpectBeginTx(readOnlyTx)
		mockPool.ExpectQuery(`SELECT DISTINCT c.id FROM client c WHERE c.first_name ILIKE $1 AND c.email ILIKE $2`).
			WithArgs("%a%", "%r%").
			WillReturnRows(mockPool.NewRows([]string{"id"}).AddRow(int64(4)))
		mockPool.ExpectQuery(selectClientsSQL).WithArgs([]int64{4}).
			WillReturnRows(mockPool.NewRows(clientCols).AddRow(int64(4), "Rafael", "Nadal Parera", "r.nadal@rafaelnadal.com"))
		mockPool.ExpectQuery(selectClientPhonesSQL).WithArgs([]int64{4}).
			WillReturnRows(mockPool.NewRows(phoneCols))
		mockPool.ExpectCommit()

		clients, performed, err := repo.Search(ctx, domain.SearchFilter{
			domain.SearchFieldEmail:     "%r%",
			domain.SearchFieldFirstName: "%a%",
		})
		require.NoError(t, err)
		assert.True(t, performed)
		require.Len(t, clients, 1)
		assert.Contains(t, clients, int64(4))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownFieldIsRejected", func(t *testing.T) {
		repo, mockPool := setupClientRepoTest(t)
		defer mockPool.Close()

		_, performed, err := repo.Search(ctx, domain.SearchFilter{"id; DROP TABLE client": "1"})
		require.Error(t, err)
		assert.False(t, performed)
		assert.ErrorIs(t, err, domain.ErrUnknownSearchField)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
