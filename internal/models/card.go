package models

import (
	"time"
)

// Card status
const (
	CardStatusActive = "active"
	CardStatusLocked = "locked"
)

// Link roles, also the priority order when a single default account is
// needed (role ascending).
const (
	LinkRoleCredit = "credit"
	LinkRoleDebit  = "debit"
)

// Card represents an ATM card. PINHash is an argon2id digest and is never
// serialized in responses. FailedPINAttempts and Status are only mutated
// under a row lock so that concurrent logins against the same card cannot
// race the counter.
type Card struct {
	ID                int64     `json:"id" db:"id"`
	CustomerID        int64     `json:"customer_id" db:"customer_id"`
	CardNumber        string    `json:"card_number" db:"card_number"`
	PINHash           string    `json:"-" db:"pin_hash"`
	Status            string    `json:"status" db:"status"`
	FailedPINAttempts int       `json:"-" db:"failed_pin_attempts"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// CardAccountLink ties a card to an account it may operate, unique per
// (card_id, account_id) pair.
type CardAccountLink struct {
	CardID    int64     `json:"card_id" db:"card_id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
