package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wedplan/internal/budget"
)

// Message types carried in the envelope.
const (
	TypeLedgerChanged = "ledger.changed"
	TypeBalanceDue    = "balance.due"
)

// ErrMalformed marks a delivery that can never be processed and must be dropped.
var ErrMalformed = errors.New("malformed message")

// Envelope wraps every payload published on the bus.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// LedgerChanged tells consumers that a user's ledger was mutated. It carries
// identifiers only; consumers read the current state from storage.
type LedgerChanged struct {
	UserID    string `json:"user_id"`
	Operation string `json:"operation"`
	ItemID    string `json:"item_id,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// ToJSON converts the envelope to JSON bytes
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON decodes a delivery body. Decoding failures wrap ErrMalformed.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &env, nil
}

func (e *Envelope) LedgerChanged() (LedgerChanged, error) {
	var msg LedgerChanged
	if err := e.decode(TypeLedgerChanged, &msg); err != nil {
		return LedgerChanged{}, err
	}
	if msg.UserID == "" {
		return LedgerChanged{}, fmt.Errorf("%w: ledger.changed without user_id", ErrMalformed)
	}
	return msg, nil
}

func (e *Envelope) BalanceDue() (budget.BalanceDue, error) {
	var msg budget.BalanceDue
	if err := e.decode(TypeBalanceDue, &msg); err != nil {
		return budget.BalanceDue{}, err
	}
	if msg.ItemID == "" {
		return budget.BalanceDue{}, fmt.Errorf("%w: balance.due without item_id", ErrMalformed)
	}
	return msg, nil
}

func (e *Envelope) decode(want string, v any) error {
	if e.Type != want {
		return fmt.Errorf("%w: envelope type %q, want %q", ErrMalformed, e.Type, want)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, want, err)
	}
	return nil
}
