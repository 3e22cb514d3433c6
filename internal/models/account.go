package models

import (
	"time"
)

// Account types
const (
	AccountTypeDebit  = "debit"
	AccountTypeCredit = "credit"
)

// Account represents a customer account. Balances are stored in minor
// currency units (cents). A debit account never goes below zero; a credit
// account may go down to -CreditLimit.
type Account struct {
	ID          int64     `json:"id" db:"id"`
	AccountType string    `json:"account_type" db:"account_type"`
	Balance     int64     `json:"balance" db:"balance"`
	CreditLimit int64     `json:"credit_limit" db:"credit_limit"`
	Locked      bool      `json:"locked" db:"locked"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
