package amqp

import (
	"encoding/json"
	"time"

	"grana/internal/core"
)

const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionDeleted  = "transaction.deleted"
)

// TransactionEvent is the lightweight queue message emitted when a
// transaction is recorded or deleted. The worker keeps only the audit
// trail; amounts stay in the database.
type TransactionEvent struct {
	Type          string               `json:"type"`
	Kind          core.TransactionKind `json:"kind"`
	TransactionID int64                `json:"transaction_id"`
	ProfileID     int64                `json:"profile_id"`
	Timestamp     time.Time            `json:"timestamp"`
}

func NewTransactionEvent(eventType string, kind core.TransactionKind, transactionID, profileID int64) *TransactionEvent {
	return &TransactionEvent{
		Type:          eventType,
		Kind:          kind,
		TransactionID: transactionID,
		ProfileID:     profileID,
		Timestamp:     time.Now(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var event TransactionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
