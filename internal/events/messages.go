package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeTransactionCreated = "transaction.created"
	TypeStatementUploaded  = "statement.uploaded"
)

// Message is the JSON envelope published after a successful mutation. It
// carries enough for a downstream consumer (budget alerts, backups) to react
// without another fetch.
type Message struct {
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      string    `json:"amount,omitempty"` // signed decimal string
	Filename    string    `json:"filename,omitempty"`
}

// NewTransactionCreated builds the event for a manual entry.
func NewTransactionCreated(category, description, amount string) *Message {
	return &Message{
		Type:        TypeTransactionCreated,
		OccurredAt:  time.Now().UTC(),
		Category:    category,
		Description: description,
		Amount:      amount,
	}
}

// NewStatementUploaded builds the event for a processed PDF upload.
func NewStatementUploaded(filename string) *Message {
	return &Message{
		Type:       TypeStatementUploaded,
		OccurredAt: time.Now().UTC(),
		Filename:   filename,
	}
}

// ToJSON serializes the message for the wire.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON parses a message and rejects unknown types.
func FromJSON(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	switch m.Type {
	case TypeTransactionCreated, TypeStatementUploaded:
		return &m, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", m.Type)
	}
}
