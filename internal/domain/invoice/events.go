package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentReceivedEvent asks for a payment to be evaluated asynchronously.
type PaymentReceivedEvent struct {
	EventID    string
	Reference  string
	Amount     decimal.Decimal
	OccurredAt time.Time
}

func (PaymentReceivedEvent) EventName() string { return "invoice.payment_received" }

func NewPaymentReceivedEvent(eventID string, p Payment) PaymentReceivedEvent {
	return PaymentReceivedEvent{
		EventID:    eventID,
		Reference:  p.Reference,
		Amount:     p.Amount,
		OccurredAt: time.Now().UTC(),
	}
}

// PaymentEvaluatedEvent is emitted once an evaluated payment has been saved.
type PaymentEvaluatedEvent struct {
	Reference  string
	Amount     decimal.Decimal
	Outcome    Outcome
	AmountPaid decimal.Decimal
	TaxAmount  decimal.Decimal
	OccurredAt time.Time
}

func (PaymentEvaluatedEvent) EventName() string { return "invoice.payment_evaluated" }

func NewPaymentEvaluatedEvent(inv *Invoice, amount decimal.Decimal, outcome Outcome) PaymentEvaluatedEvent {
	return PaymentEvaluatedEvent{
		Reference:  inv.Reference,
		Amount:     amount,
		Outcome:    outcome,
		AmountPaid: inv.AmountPaid,
		TaxAmount:  inv.TaxAmount,
		OccurredAt: time.Now().UTC(),
	}
}
