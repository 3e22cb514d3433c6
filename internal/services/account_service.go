package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bankline/backend/internal/models"
)

// ErrInvalidAccountData rejects an account whose initial state would break
// its own balance floor.
var ErrInvalidAccountData = errors.New("invalid account data")

// AccountService is the administrative CRUD surface for accounts. Balance
// mutation stays with the ledger service.
type AccountService struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

func (s *AccountService) CreateAccount(ctx context.Context, accountType string, balance, creditLimit int64) (*models.Account, error) {
	if creditLimit < 0 {
		return nil, ErrInvalidAccountData
	}
	switch accountType {
	case models.AccountTypeDebit:
		if balance < 0 {
			return nil, ErrInvalidAccountData
		}
		creditLimit = 0
	case models.AccountTypeCredit:
		if balance < -creditLimit {
			return nil, ErrInvalidAccountData
		}
	default:
		return nil, ErrInvalidAccountData
	}

	account := &models.Account{
		AccountType: accountType,
		Balance:     balance,
		CreditLimit: creditLimit,
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (account_type, balance, credit_limit) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
		accountType, balance, creditLimit).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_type, balance, credit_limit, locked, created_at, updated_at FROM accounts WHERE id = $1`,
		id).Scan(&account.ID, &account.AccountType, &account.Balance, &account.CreditLimit,
		&account.Locked, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("read account %d: %w", id, err)
	}
	return &account, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return requireRow(result, ErrAccountNotFound)
}
