package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("invoice: not found")
	ErrConflict          = errors.New("invoice: already exists")
	ErrReferenceRequired = errors.New("invoice: reference is required")
	ErrInvalidAmount     = errors.New("invoice: amount must be zero or greater")
	ErrInvalidType       = errors.New("invoice: unknown type")
)

// TaxRate is applied to payments on commercial invoices and to full-amount payments.
var TaxRate = decimal.RequireFromString("0.14")

type Type string

const (
	TypeStandard   Type = "standard"
	TypeCommercial Type = "commercial"
)

// ParseType maps an external type name onto a Type. The empty string is standard.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeStandard:
		return TypeStandard, nil
	case TypeCommercial:
		return TypeCommercial, nil
	default:
		return "", ErrInvalidType
	}
}

type Payment struct {
	Reference string
	Amount    decimal.Decimal
}

type Invoice struct {
	Reference  string
	Amount     decimal.Decimal
	AmountPaid decimal.Decimal
	TaxAmount  decimal.Decimal
	Type       Type
	Payments   []Payment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(reference string, amount decimal.Decimal, typ Type) (*Invoice, error) {
	if reference == "" {
		return nil, ErrReferenceRequired
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if typ == "" {
		typ = TypeStandard
	}

	now := time.Now().UTC()
	return &Invoice{
		Reference: reference,
		Amount:    amount,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (i *Invoice) IsCommercial() bool { return i.Type == TypeCommercial }

func (i *Invoice) HasPayments() bool { return len(i.Payments) > 0 }

// TotalPayments sums the recorded payments. It is independent of AmountPaid,
// which callers are expected (but not forced) to keep in step.
func (i *Invoice) TotalPayments() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

func (i *Invoice) Balance() decimal.Decimal {
	return i.Amount.Sub(i.AmountPaid)
}

// ApplyPayment records p against the invoice totals and appends it to Payments.
// It performs no validation; see Evaluate.
func (i *Invoice) ApplyPayment(p Payment) {
	i.AmountPaid = i.AmountPaid.Add(p.Amount)

	if i.IsCommercial() {
		i.TaxAmount = i.TaxAmount.Add(p.Amount.Mul(TaxRate))
	}

	// Full original amount overwrites any accrued tax.
	if p.Amount.Equal(i.Amount) {
		i.TaxAmount = p.Amount.Mul(TaxRate)
	}

	i.Payments = append(i.Payments, p)
	i.touch()
}

func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	clone := *i
	if i.Payments != nil {
		clone.Payments = append([]Payment(nil), i.Payments...)
	}
	return &clone
}

func (i *Invoice) touch() {
	i.UpdatedAt = time.Now().UTC()
}
