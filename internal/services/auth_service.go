package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bankline/backend/internal/audit"
	"github.com/bankline/backend/internal/events"
	"github.com/bankline/backend/internal/models"
)

// MaxPINAttempts is the number of consecutive failures after which a card
// locks. The lock is permanent from this path; only an administrative card
// update reverts it.
const MaxPINAttempts = 3

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCardLocked         = errors.New("card locked")
	ErrCardLockedAttempts = errors.New("card locked (too many attempts)")
	ErrNoLinkedAccounts   = errors.New("card has no linked account")
)

// PINMismatchError reports a wrong PIN on a card that is still active.
type PINMismatchError struct {
	AttemptsLeft int
}

func (e *PINMismatchError) Error() string {
	return fmt.Sprintf("wrong pin, %d attempts left", e.AttemptsLeft)
}

// CardAccountRef is one account a card may operate, in role-ascending
// priority order.
type CardAccountRef struct {
	Role      string `json:"role"`
	AccountID int64  `json:"accountId"`
}

// CardAuthService verifies card PINs and tracks consecutive failures in
// the card row itself. The counter and status are only ever touched under
// a FOR UPDATE lock in one transaction, so concurrent attempts against the
// same card cannot produce a count the database never held.
type CardAuthService struct {
	db        *sql.DB
	audit     *audit.Logger
	publisher *events.Publisher
}

func NewCardAuthService(db *sql.DB, publisher *events.Publisher) *CardAuthService {
	return &CardAuthService{
		db:        db,
		audit:     audit.NewLogger(),
		publisher: publisher,
	}
}

// VerifyPIN authenticates a card and returns its linked accounts ordered
// by role ascending. Failures come back as ErrInvalidCredentials (unknown
// card, nothing mutated), ErrCardLocked (locked before this call),
// *PINMismatchError (counter incremented), ErrCardLockedAttempts (this
// failure reached the threshold) or ErrNoLinkedAccounts.
func (s *CardAuthService) VerifyPIN(ctx context.Context, cardNumber, pin string) ([]CardAccountRef, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}
	defer tx.Rollback()

	var (
		cardID   int64
		pinHash  string
		status   string
		attempts int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, pin_hash, status, failed_pin_attempts FROM cards WHERE card_number = $1 FOR UPDATE`,
		cardNumber).Scan(&cardID, &pinHash, &status, &attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lock card: %w", err)
	}

	if status != models.CardStatusActive {
		return nil, ErrCardLocked
	}

	if !verifyPIN(pin, pinHash) {
		return nil, s.recordFailedAttempt(ctx, tx, cardID, attempts)
	}

	if attempts > 0 {
		if _, err = tx.ExecContext(ctx,
			`UPDATE cards SET failed_pin_attempts = 0 WHERE id = $1`, cardID); err != nil {
			return nil, fmt.Errorf("reset pin attempts: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT role, account_id FROM card_accounts WHERE card_id = $1 ORDER BY role ASC`, cardID)
	if err != nil {
		return nil, fmt.Errorf("fetch card accounts: %w", err)
	}
	defer rows.Close()

	var accounts []CardAccountRef
	for rows.Next() {
		var ref CardAccountRef
		if err = rows.Scan(&ref.Role, &ref.AccountID); err != nil {
			return nil, fmt.Errorf("scan card account: %w", err)
		}
		accounts = append(accounts, ref)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch card accounts: %w", err)
	}

	if len(accounts) == 0 {
		log.Printf("[AUTH] Card %d has no linked accounts", cardID)
		return nil, ErrNoLinkedAccounts
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit login: %w", err)
	}

	return accounts, nil
}

// recordFailedAttempt persists the incremented counter, locking the card
// in the same write when the threshold is reached. The caller's deferred
// rollback is a no-op once the commit here succeeds.
func (s *CardAuthService) recordFailedAttempt(ctx context.Context, tx *sql.Tx, cardID int64, attempts int) error {
	attempts++

	if attempts >= MaxPINAttempts {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cards SET failed_pin_attempts = $1, status = $2 WHERE id = $3`,
			attempts, models.CardStatusLocked, cardID); err != nil {
			return fmt.Errorf("lock card: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit card lock: %w", err)
		}

		s.audit.LogCardLocked(cardID, attempts)
		s.publisher.PublishCardLocked(events.CardLockedEvent{
			CardID:         cardID,
			FailedAttempts: attempts,
			OccurredAt:     time.Now(),
		})
		return ErrCardLockedAttempts
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET failed_pin_attempts = $1 WHERE id = $2`, attempts, cardID); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed attempt: %w", err)
	}

	return &PINMismatchError{AttemptsLeft: MaxPINAttempts - attempts}
}
