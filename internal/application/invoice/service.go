package invoice

import (
	"context"
	"fmt"

	dominvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability/logctx"
	"github.com/shopspring/decimal"
)

const componentInvoiceService = "invoice_service"

type RegisterInvoiceInput struct {
	Reference  string
	Amount     decimal.Decimal
	AmountPaid decimal.Decimal
	TaxAmount  decimal.Decimal
	Type       dominvoice.Type
	Payments   []dominvoice.Payment
}

// Service registers and reads invoices. Payment evaluation lives in the
// payment package; this is the seeding and inspection path.
type Service struct {
	repo dominvoice.Repository
	log  observability.Logger
}

func NewService(repo dominvoice.Repository, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo: repo,
		log:  logger.With(observability.F("component", componentInvoiceService)),
	}
}

// Register stores a new invoice snapshot. Prior payments and totals are taken
// as given; they are not reconciled against each other.
func (s *Service) Register(ctx context.Context, in RegisterInvoiceInput) (*dominvoice.Invoice, error) {
	logger := logctx.FromOr(ctx, s.log)

	inv, err := dominvoice.New(in.Reference, in.Amount, in.Type)
	if err != nil {
		return nil, err
	}
	inv.AmountPaid = in.AmountPaid
	inv.TaxAmount = in.TaxAmount
	if len(in.Payments) > 0 {
		inv.Payments = append([]dominvoice.Payment(nil), in.Payments...)
	}

	if err := s.repo.Insert(ctx, inv); err != nil {
		logger.Warn("invoice_register_failed",
			observability.F("reference", in.Reference),
			observability.F("error", err.Error()),
		)
		return nil, err
	}

	logger.Info("invoice_registered",
		observability.F("reference", inv.Reference),
		observability.F("amount", inv.Amount.String()),
		observability.F("type", string(inv.Type)),
	)
	return inv, nil
}

func (s *Service) Get(ctx context.Context, reference string) (*dominvoice.Invoice, error) {
	if reference == "" {
		return nil, dominvoice.ErrReferenceRequired
	}
	inv, err := s.repo.Lookup(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("invoice: get %s: %w", reference, err)
	}
	return inv, nil
}
