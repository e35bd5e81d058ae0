package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const defaultPrefix = "invoicing:invoice:"

// InvoiceStore keeps each invoice as one JSON document keyed by reference.
type InvoiceStore struct {
	rdb    goredis.Cmdable
	prefix string
}

func NewInvoiceStore(rdb goredis.Cmdable, prefix string) *InvoiceStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &InvoiceStore{rdb: rdb, prefix: prefix}
}

type paymentDocument struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

type invoiceDocument struct {
	Reference  string            `json:"reference"`
	Amount     decimal.Decimal   `json:"amount"`
	AmountPaid decimal.Decimal   `json:"amount_paid"`
	TaxAmount  decimal.Decimal   `json:"tax_amount"`
	Type       domain.Type       `json:"type"`
	Payments   []paymentDocument `json:"payments,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (s *InvoiceStore) key(reference string) string {
	return s.prefix + reference
}

func (s *InvoiceStore) Insert(ctx context.Context, inv *domain.Invoice) error {
	if inv == nil || inv.Reference == "" {
		return domain.ErrReferenceRequired
	}
	payload, err := encode(inv)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(inv.Reference), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("redis invoice store: insert %s: %w", inv.Reference, err)
	}
	if !ok {
		return domain.ErrConflict
	}
	return nil
}

func (s *InvoiceStore) Lookup(ctx context.Context, reference string) (*domain.Invoice, error) {
	raw, err := s.rdb.Get(ctx, s.key(reference)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis invoice store: lookup %s: %w", reference, err)
	}
	return decode(raw)
}

func (s *InvoiceStore) Save(ctx context.Context, inv *domain.Invoice) error {
	if inv == nil || inv.Reference == "" {
		return domain.ErrReferenceRequired
	}
	payload, err := encode(inv)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(inv.Reference), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis invoice store: save %s: %w", inv.Reference, err)
	}
	return nil
}

func encode(inv *domain.Invoice) ([]byte, error) {
	doc := invoiceDocument{
		Reference:  inv.Reference,
		Amount:     inv.Amount,
		AmountPaid: inv.AmountPaid,
		TaxAmount:  inv.TaxAmount,
		Type:       inv.Type,
		CreatedAt:  inv.CreatedAt,
		UpdatedAt:  inv.UpdatedAt,
	}
	for _, p := range inv.Payments {
		doc.Payments = append(doc.Payments, paymentDocument{Reference: p.Reference, Amount: p.Amount})
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("redis invoice store: encode %s: %w", inv.Reference, err)
	}
	return payload, nil
}

func decode(raw []byte) (*domain.Invoice, error) {
	var doc invoiceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("redis invoice store: decode: %w", err)
	}
	inv := &domain.Invoice{
		Reference:  doc.Reference,
		Amount:     doc.Amount,
		AmountPaid: doc.AmountPaid,
		TaxAmount:  doc.TaxAmount,
		Type:       doc.Type,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	for _, p := range doc.Payments {
		inv.Payments = append(inv.Payments, domain.Payment{Reference: p.Reference, Amount: p.Amount})
	}
	return inv, nil
}
