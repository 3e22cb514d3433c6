// Package audit emits structured audit events for money movement and card
// lockout transitions. Events go to the process log as single-line JSON so
// they can be shipped without a separate pipeline.
package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	ReferenceID string    `json:"reference_id,omitempty"`
	AccountID   int64     `json:"account_id,omitempty"`
	CardID      int64     `json:"card_id,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Status      string    `json:"status"`
	Details     any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogWithdrawal(referenceID string, accountID, amount, newBalance int64) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "WITHDRAWAL",
		ReferenceID: referenceID,
		AccountID:   accountID,
		Amount:      amount,
		Status:      "SUCCESS",
		Details:     map[string]int64{"balance_after": newBalance},
	})
}

func (a *Logger) LogCardLocked(cardID int64, attempts int) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "CARD_LOCKED",
		CardID:    cardID,
		Status:    "LOCKED",
		Details:   map[string]int{"failed_attempts": attempts},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
