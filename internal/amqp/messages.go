package amqp

import (
	"encoding/json"
	"time"

	"nomina/internal/core"
)

// RecordsChangedMessage tells consumers that ledger data changed. It carries
// no rows: consumers reload the ledger and recompute.
type RecordsChangedMessage struct {
	// Months touched by the change. Empty means every month may be affected.
	Months    []core.Month `json:"months"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewRecordsChangedMessage(months []core.Month, reason string) *RecordsChangedMessage {
	if months == nil {
		months = []core.Month{}
	}
	return &RecordsChangedMessage{
		Months:    months,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordsChangedMessageFromJSON decodes a message body.
func RecordsChangedMessageFromJSON(data []byte) (*RecordsChangedMessage, error) {
	var msg RecordsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
