package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/bankline/backend/internal/services"
)

func accountRouter(db *sql.DB) http.Handler {
	h := NewAccountHandler(
		services.NewLedgerService(db, nil),
		services.NewHistoryService(db),
		services.NewAccountService(db),
	)

	r := chi.NewRouter()
	r.Post("/accounts", h.CreateAccount)
	r.Get("/accounts/{id}", h.GetAccount)
	r.Delete("/accounts/{id}", h.DeleteAccount)
	r.Post("/accounts/{id}/withdraw", h.Withdraw)
	r.Get("/accounts/{id}/balance", h.Balance)
	r.Get("/accounts/{id}/transactions", h.Transactions)
	return r
}

func TestAccountHandler_Withdraw(t *testing.T) {
	t.Run("success returns the wire contract", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT balance, account_type, credit_limit FROM accounts WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "credit_limit"}).
				AddRow(500, "debit", 0))
		mock.ExpectExec(`UPDATE accounts SET balance = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs(int64(370), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO transactions \(account_id, amount, tx_type, reference_id\) VALUES \(\$1, \$2, \$3, \$4\)`).
			WithArgs(int64(1), int64(130), "withdrawal", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		router := accountRouter(db)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts/1/withdraw", strings.NewReader(`{"amount":130}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp WithdrawResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, int64(1), resp.AccountID)
		assert.Equal(t, int64(130), resp.Withdrawn)
		assert.Equal(t, int64(370), resp.Balance)
		assert.Equal(t, 1, resp.Bills.Fifties)
		assert.Equal(t, 4, resp.Bills.Twenties)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non dispensable amount never reaches the store", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		router := accountRouter(db)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts/1/withdraw", strings.NewReader(`{"amount":30}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "allowed bills: 20 and 50")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT balance, account_type, credit_limit FROM accounts WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "credit_limit"}).
				AddRow(40, "debit", 0))
		mock.ExpectRollback()

		router := accountRouter(db)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts/1/withdraw", strings.NewReader(`{"amount":60}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Insufficient funds")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT balance, account_type, credit_limit FROM accounts WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"balance", "account_type", "credit_limit"}))
		mock.ExpectRollback()

		router := accountRouter(db)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts/404/withdraw", strings.NewReader(`{"amount":20}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad path and body", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		router := accountRouter(db)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts/abc/withdraw", strings.NewReader(`{"amount":20}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts/1/withdraw", strings.NewReader(`not json`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts/1/withdraw", strings.NewReader(`{"amount":-20}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAccountHandler_Transactions(t *testing.T) {
	t.Run("pages newest first", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		created := time.UnixMilli(1700000002000).UTC()
		mock.ExpectQuery(`SELECT id, account_id, amount, tx_type, reference_id, created_at FROM transactions WHERE account_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2`).
			WithArgs(int64(1), 3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "amount", "tx_type", "reference_id", "created_at"}).
				AddRow(20, 1, 130, "withdrawal", "ref-20", created))

		router := accountRouter(db)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/1/transactions?limit=2", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var page services.TransactionPage
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Len(t, page.Items, 1)
		assert.Nil(t, page.NextCursor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects malformed cursors", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		router := accountRouter(db)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/1/transactions?before=garbage", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid before cursor")

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/1/transactions?after=1%7C", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid after cursor")
	})

	t.Run("rejects both cursors", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		router := accountRouter(db)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/accounts/1/transactions?before=1700000002000%7C20&after=1700000001000%7C10", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Use only one: before or after")
	})
}

func TestAccountHandler_Balance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, account_type, balance, credit_limit FROM accounts WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_type", "balance", "credit_limit"}).
			AddRow(1, "credit", -50, 200))

	router := accountRouter(db)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/1/balance", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp services.BalanceResult
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(-50), resp.Balance)
	assert.Equal(t, "credit", resp.AccountType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
