package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
)

const (
	selectInvoice  = `SELECT reference, amount, amount_paid, tax_amount, type, created_at, updated_at FROM invoices WHERE reference = $1`
	selectPayments = `SELECT reference, amount FROM invoice_payments WHERE invoice_reference = $1 ORDER BY position`
	insertInvoice  = `INSERT INTO invoices (reference, amount, amount_paid, tax_amount, type, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (reference) DO NOTHING`
	upsertInvoice  = `INSERT INTO invoices (reference, amount, amount_paid, tax_amount, type, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (reference) DO UPDATE SET amount = EXCLUDED.amount, amount_paid = EXCLUDED.amount_paid, tax_amount = EXCLUDED.tax_amount, type = EXCLUDED.type, updated_at = EXCLUDED.updated_at`
	deletePayments = `DELETE FROM invoice_payments WHERE invoice_reference = $1`
	insertPayment  = `INSERT INTO invoice_payments (invoice_reference, position, reference, amount) VALUES ($1, $2, $3, $4)`
)

// InvoiceStore persists invoices and their payment lists in two tables.
// Save rewrites the payment list inside one transaction.
type InvoiceStore struct {
	db *sql.DB
}

func NewInvoiceStore(db *sql.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

func (s *InvoiceStore) Lookup(ctx context.Context, reference string) (*domain.Invoice, error) {
	var (
		inv domain.Invoice
		typ string
	)
	err := s.db.QueryRowContext(ctx, selectInvoice, reference).Scan(
		&inv.Reference,
		&inv.Amount,
		&inv.AmountPaid,
		&inv.TaxAmount,
		&typ,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres invoice store: lookup %s: %w", reference, err)
	}
	inv.Type = domain.Type(typ)

	rows, err := s.db.QueryContext(ctx, selectPayments, reference)
	if err != nil {
		return nil, fmt.Errorf("postgres invoice store: payments %s: %w", reference, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.Reference, &p.Amount); err != nil {
			return nil, fmt.Errorf("postgres invoice store: scan payment: %w", err)
		}
		inv.Payments = append(inv.Payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InvoiceStore) Insert(ctx context.Context, inv *domain.Invoice) error {
	if inv == nil || inv.Reference == "" {
		return domain.ErrReferenceRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertInvoice, invoiceArgs(inv)...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrConflict
		}
		return writePayments(ctx, tx, inv)
	})
}

func (s *InvoiceStore) Save(ctx context.Context, inv *domain.Invoice) error {
	if inv == nil || inv.Reference == "" {
		return domain.ErrReferenceRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertInvoice, invoiceArgs(inv)...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, deletePayments, inv.Reference); err != nil {
			return err
		}
		return writePayments(ctx, tx, inv)
	})
}

func (s *InvoiceStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres invoice store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("postgres invoice store: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres invoice store: commit: %w", err)
	}
	return nil
}

func writePayments(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	for i, p := range inv.Payments {
		if _, err := tx.ExecContext(ctx, insertPayment, inv.Reference, i, p.Reference, p.Amount); err != nil {
			return err
		}
	}
	return nil
}

func invoiceArgs(inv *domain.Invoice) []any {
	typ := inv.Type
	if typ == "" {
		typ = domain.TypeStandard
	}
	return []any{
		inv.Reference,
		inv.Amount,
		inv.AmountPaid,
		inv.TaxAmount,
		string(typ),
		inv.CreatedAt,
		inv.UpdatedAt,
	}
}
