package invoice

import "context"

// Store is the ledger capability the payment evaluator depends on.
// Lookup returns ErrNotFound for unknown references.
type Store interface {
	Lookup(ctx context.Context, reference string) (*Invoice, error)
	Save(ctx context.Context, inv *Invoice) error
}

type Repository interface {
	Store
	// Insert adds a new invoice, returning ErrConflict if the reference is taken.
	Insert(ctx context.Context, inv *Invoice) error
}
