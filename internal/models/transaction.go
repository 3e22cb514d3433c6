package models

import (
	"time"
)

// Transaction types
const (
	TxTypeWithdrawal = "withdrawal"
	TxTypeDeposit    = "deposit"
	TxTypeBalance    = "balance"
)

// Transaction is one append-only ledger row. Rows are never updated or
// deleted, which is what makes the (created_at, id) keyset cursors stable.
type Transaction struct {
	ID          int64     `json:"id" db:"id"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	Amount      int64     `json:"amount" db:"amount"`
	TxType      string    `json:"tx_type" db:"tx_type"`
	ReferenceID string    `json:"reference_id" db:"reference_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
