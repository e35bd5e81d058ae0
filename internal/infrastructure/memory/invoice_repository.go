package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
)

// InvoiceRepository keeps invoices in process memory. Every read and write
// goes through a deep copy so callers never share state with the store.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]*domain.Invoice
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		invoices: make(map[string]*domain.Invoice),
	}
}

func (r *InvoiceRepository) Insert(_ context.Context, inv *domain.Invoice) error {
	if inv == nil || inv.Reference == "" {
		return domain.ErrReferenceRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[inv.Reference]; exists {
		return domain.ErrConflict
	}
	r.invoices[inv.Reference] = inv.Clone()
	return nil
}

func (r *InvoiceRepository) Lookup(_ context.Context, reference string) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv.Clone(), nil
}

// Save upserts inv.
func (r *InvoiceRepository) Save(_ context.Context, inv *domain.Invoice) error {
	if inv == nil || inv.Reference == "" {
		return domain.ErrReferenceRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.invoices[inv.Reference] = inv.Clone()
	return nil
}
