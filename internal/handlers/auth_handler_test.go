package handlers

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/bankline/backend/internal/services"
)

func authRouter(db *sql.DB) http.Handler {
	h := NewAuthHandler(services.NewCardAuthService(db, nil))
	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	return r
}

// storedHash is well formed but matches no PIN under the test parameters.
func storedHash() string {
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 8*1024)
	viper.Set("argon2.threads", 1)
	viper.Set("argon2.key_length", 32)
	viper.Set("argon2.salt_length", 16)
	return fmt.Sprintf("%s$%s",
		base64.StdEncoding.EncodeToString([]byte("0123456789abcdef")),
		base64.StdEncoding.EncodeToString(make([]byte, 32)))
}

func postLogin(router http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("wrong pin reports attempts left", func(t *testing.T) {
		hash := storedHash()
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, pin_hash, status, failed_pin_attempts FROM cards WHERE card_number = \$1 FOR UPDATE`).
			WithArgs("4000123412341234").
			WillReturnRows(sqlmock.NewRows([]string{"id", "pin_hash", "status", "failed_pin_attempts"}).
				AddRow(1, hash, "active", 0))
		mock.ExpectExec(`UPDATE cards SET failed_pin_attempts = \$1 WHERE id = \$2`).
			WithArgs(1, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec := postLogin(authRouter(db), `{"cardNumber":"4000123412341234","pin":"9999"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["ok"])
		assert.Equal(t, float64(2), resp["attemptsLeft"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("third failure locks the card", func(t *testing.T) {
		hash := storedHash()
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, pin_hash, status, failed_pin_attempts FROM cards WHERE card_number = \$1 FOR UPDATE`).
			WithArgs("4000123412341234").
			WillReturnRows(sqlmock.NewRows([]string{"id", "pin_hash", "status", "failed_pin_attempts"}).
				AddRow(1, hash, "active", 2))
		mock.ExpectExec(`UPDATE cards SET failed_pin_attempts = \$1, status = \$2 WHERE id = \$3`).
			WithArgs(3, "locked", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec := postLogin(authRouter(db), `{"cardNumber":"4000123412341234","pin":"9999"}`)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Card locked (too many attempts)")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locked card is rejected before pin verification", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, pin_hash, status, failed_pin_attempts FROM cards WHERE card_number = \$1 FOR UPDATE`).
			WithArgs("4000123412341234").
			WillReturnRows(sqlmock.NewRows([]string{"id", "pin_hash", "status", "failed_pin_attempts"}).
				AddRow(1, "irrelevant", "locked", 3))
		mock.ExpectRollback()

		rec := postLogin(authRouter(db), `{"cardNumber":"4000123412341234","pin":"1234"}`)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Card locked")
		assert.NotContains(t, rec.Body.String(), "too many attempts")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown card gets a generic rejection", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, pin_hash, status, failed_pin_attempts FROM cards WHERE card_number = \$1 FOR UPDATE`).
			WithArgs("0000000000000000").
			WillReturnRows(sqlmock.NewRows([]string{"id", "pin_hash", "status", "failed_pin_attempts"}))
		mock.ExpectRollback()

		rec := postLogin(authRouter(db), `{"cardNumber":"0000000000000000","pin":"1234"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["ok"])
		assert.Equal(t, "Invalid credentials", resp["error"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation failures never reach the store", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		router := authRouter(db)

		rec := postLogin(router, `{"pin":"1234"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = postLogin(router, `{"cardNumber":"4000123412341234","pin":"12"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = postLogin(router, `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
