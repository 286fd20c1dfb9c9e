package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Kinds of resources a mutation touches.
const (
	KindIncome    = "income"
	KindFixedCost = "fixedCost"
	KindSaving    = "saving"
)

// Operations recorded in the journal.
const (
	OpCloseOut = "close_out"
	OpDelete   = "delete"
	OpFinalize = "finalize"
)

// MutationEvent announces a mutation the finance API accepted.
type MutationEvent struct {
	Kind      string    `json:"kind"`
	Operation string    `json:"operation"`
	ItemID    int64     `json:"item_id,omitempty"`
	ItemName  string    `json:"item_name,omitempty"`
	Month     string    `json:"month,omitempty"`
	DateTo    string    `json:"date_to,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMutationEvent(kind, operation string, itemID int64, itemName string) *MutationEvent {
	return &MutationEvent{
		Kind:      kind,
		Operation: operation,
		ItemID:    itemID,
		ItemName:  itemName,
		Timestamp: time.Now().UTC(),
	}
}

func (m *MutationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects events the journal cannot store.
func (m *MutationEvent) Validate() error {
	switch m.Kind {
	case KindIncome, KindFixedCost, KindSaving:
	default:
		return errors.New("unknown event kind: " + m.Kind)
	}
	switch m.Operation {
	case OpCloseOut, OpDelete, OpFinalize:
	default:
		return errors.New("unknown event operation: " + m.Operation)
	}
	if m.ItemID == 0 && m.ItemName == "" {
		return errors.New("event without item id or name")
	}
	return nil
}

// MutationEventFromJSON decodes and validates an event.
func MutationEventFromJSON(data []byte) (*MutationEvent, error) {
	var msg MutationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
