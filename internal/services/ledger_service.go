package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bankline/backend/internal/atm"
	"github.com/bankline/backend/internal/audit"
	"github.com/bankline/backend/internal/events"
	"github.com/bankline/backend/internal/models"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrInvalidAccountType  = errors.New("invalid account type")
)

// LedgerService owns the only code path that mutates an account balance.
// Every withdrawal runs inside one database transaction holding a
// FOR UPDATE lock on the account row, so two withdrawals against the same
// account serialize and their effects match some serial order.
type LedgerService struct {
	db        *sql.DB
	audit     *audit.Logger
	publisher *events.Publisher
}

func NewLedgerService(db *sql.DB, publisher *events.Publisher) *LedgerService {
	return &LedgerService{
		db:        db,
		audit:     audit.NewLogger(),
		publisher: publisher,
	}
}

// WithdrawResult is the successful outcome of a withdrawal.
type WithdrawResult struct {
	AccountID   int64
	Withdrawn   int64
	Balance     int64
	Bills       atm.Bills
	ReferenceID string
}

// BalanceResult is a read-only account snapshot.
type BalanceResult struct {
	AccountID   int64  `json:"id"`
	AccountType string `json:"account_type"`
	Balance     int64  `json:"balance"`
	CreditLimit int64  `json:"credit_limit"`
}

// Withdraw debits amount from the account and appends a withdrawal row,
// or does neither. Amounts that cannot be paid out in 50/20 notes are
// rejected before any store access.
func (s *LedgerService) Withdraw(ctx context.Context, accountID, amount int64) (*WithdrawResult, error) {
	bills, err := atm.SplitBills(amount)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin withdrawal: %w", err)
	}
	defer tx.Rollback()

	var (
		balance     int64
		accountType string
		creditLimit int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT balance, account_type, credit_limit FROM accounts WHERE id = $1 FOR UPDATE`,
		accountID).Scan(&balance, &accountType, &creditLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lock account %d: %w", accountID, err)
	}

	newBalance := balance - amount

	switch accountType {
	case models.AccountTypeDebit:
		if balance < amount {
			return nil, ErrInsufficientFunds
		}
	case models.AccountTypeCredit:
		if newBalance < -creditLimit {
			return nil, ErrCreditLimitExceeded
		}
	default:
		log.Printf("[LEDGER] Account %d has unknown type %q", accountID, accountType)
		return nil, ErrInvalidAccountType
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, accountID); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	referenceID := uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (account_id, amount, tx_type, reference_id) VALUES ($1, $2, $3, $4)`,
		accountID, amount, models.TxTypeWithdrawal, referenceID); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit withdrawal: %w", err)
	}

	s.audit.LogWithdrawal(referenceID, accountID, amount, newBalance)
	s.publisher.PublishWithdrawal(events.WithdrawalEvent{
		ReferenceID: referenceID,
		AccountID:   accountID,
		Amount:      amount,
		Balance:     newBalance,
		OccurredAt:  time.Now(),
	})

	return &WithdrawResult{
		AccountID:   accountID,
		Withdrawn:   amount,
		Balance:     newBalance,
		Bills:       bills,
		ReferenceID: referenceID,
	}, nil
}

// GetBalance reads the account snapshot with the store's default read
// consistency; no lock is taken.
func (s *LedgerService) GetBalance(ctx context.Context, accountID int64) (*BalanceResult, error) {
	var result BalanceResult
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_type, balance, credit_limit FROM accounts WHERE id = $1`,
		accountID).Scan(&result.AccountID, &result.AccountType, &result.Balance, &result.CreditLimit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("read account %d: %w", accountID, err)
	}
	return &result, nil
}
