package events

import (
	"encoding/json"
	"time"
)

// Actions carried by transaction events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionEvent is the message published for every durable transaction
// mutation. It carries enough to audit the change without a database
// round trip.
type TransactionEvent struct {
	Action        string    `json:"action"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	AmountCents   int64     `json:"amountCents"`
	Type          string    `json:"type"`
	Category      string    `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps an event with the current time.
func NewTransactionEvent(action, transactionID, userID string, amountCents int64, txType, category string) *TransactionEvent {
	return &TransactionEvent{
		Action:        action,
		TransactionID: transactionID,
		UserID:        userID,
		AmountCents:   amountCents,
		Type:          txType,
		Category:      category,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
