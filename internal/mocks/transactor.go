package mocks

import (
	"context"

	"github.com/fluentloop/recall-api/internal/store"
)

// Transactor runs the transaction function directly with a nil *sql.Tx.
// The in-memory stores ignore WithTx, so this gives service tests the
// same call shape as the real transactor without a database.
type Transactor struct {
	// Err, when set, is returned without running the function.
	Err error

	// Calls counts how many transactions were started.
	Calls int
}

// NewTransactor creates a pass-through transactor for tests.
func NewTransactor() *Transactor {
	return &Transactor{}
}

var _ store.Transactor = (*Transactor)(nil)

func (t *Transactor) WithTransaction(ctx context.Context, fn store.TxFn) error {
	t.Calls++
	if t.Err != nil {
		return t.Err
	}
	return fn(ctx, nil)
}
