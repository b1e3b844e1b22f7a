package amqp

import (
	"context"
	"fmt"

	"wedplan/internal/budget"
)

// Handlers routes decoded envelopes by message type. A nil handler means the
// consumer does not expect that type; such deliveries are dropped.
type Handlers struct {
	LedgerChanged func(ctx context.Context, msg LedgerChanged) error
	BalanceDue    func(ctx context.Context, msg budget.BalanceDue) error
}

// Dispatch decodes body and invokes the matching handler. Errors wrapping
// ErrMalformed mean the delivery must be dropped; any other error means it
// should be retried.
func (h Handlers) Dispatch(ctx context.Context, body []byte) error {
	env, err := EnvelopeFromJSON(body)
	if err != nil {
		return err
	}

	switch env.Type {
	case TypeLedgerChanged:
		if h.LedgerChanged == nil {
			break
		}
		msg, err := env.LedgerChanged()
		if err != nil {
			return err
		}
		return h.LedgerChanged(ctx, msg)
	case TypeBalanceDue:
		if h.BalanceDue == nil {
			break
		}
		msg, err := env.BalanceDue()
		if err != nil {
			return err
		}
		return h.BalanceDue(ctx, msg)
	}
	return fmt.Errorf("%w: no handler for type %q", ErrMalformed, env.Type)
}
