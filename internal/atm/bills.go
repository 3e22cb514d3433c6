// Package atm holds the cash-dispensing arithmetic shared by the ledger
// service and request validation.
package atm

import (
	"errors"
)

// ErrNotDispensable is returned when an amount cannot be paid out with the
// available note denominations.
var ErrNotDispensable = errors.New("amount not dispensable in 50s and 20s")

// Bills is a denomination breakdown for a cash withdrawal.
type Bills struct {
	Fifties  int `json:"50"`
	Twenties int `json:"20"`
}

// SplitBills decomposes amount into 50 and 20 notes, preferring as many
// 50s as possible. It scans the 50-count downwards and stops at the first
// remainder divisible by 20, which is the 50-preferred solution: each
// decrement shifts the remainder by 10 mod 20, so a feasible amount is
// found within two steps, and an infeasible one exhausts the scan.
func SplitBills(amount int64) (Bills, error) {
	if amount <= 0 || amount%10 != 0 {
		return Bills{}, ErrNotDispensable
	}

	for fifties := amount / 50; fifties >= 0; fifties-- {
		rest := amount - 50*fifties
		if rest%20 == 0 {
			return Bills{Fifties: int(fifties), Twenties: int(rest / 20)}, nil
		}
	}

	return Bills{}, ErrNotDispensable
}
