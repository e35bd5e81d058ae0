package invoice

import "github.com/shopspring/decimal"

// Decision is the result of evaluating one payment against one invoice.
// Applied is false only for the NoPaymentNeeded short-circuit, in which case
// the invoice was left untouched and need not be persisted.
type Decision struct {
	Outcome Outcome
	Applied bool
}

// Validate checks that inv can take a payment. A non-empty outcome with a nil
// error is terminal: there is nothing to pay.
func Validate(inv *Invoice) (Outcome, error) {
	if inv == nil {
		return "", ErrInvoiceNotFound
	}
	if inv.Amount.IsZero() {
		if !inv.HasPayments() {
			return OutcomeNoPaymentNeeded, nil
		}
		return "", ErrInvalidInvoice
	}
	return "", nil
}

// Classify decides the outcome of paying amount against inv's current state.
// It does not mutate inv.
func Classify(inv *Invoice, amount decimal.Decimal) Outcome {
	if inv.HasPayments() {
		total := inv.TotalPayments()
		balance := inv.Balance()

		switch {
		case !total.IsZero() && inv.Amount.Equal(total):
			return OutcomeInvoiceAlreadyFullyPaid
		case amount.GreaterThan(balance):
			return OutcomePaymentGreaterThanRemaining
		case amount.Equal(balance):
			return OutcomeFinalPaymentReceived
		default:
			return OutcomePartialPaymentReceived
		}
	}

	switch {
	case amount.GreaterThan(inv.Amount):
		return OutcomePaymentGreaterThanInvoiceAmount
	case amount.Equal(inv.Amount):
		return OutcomeInvoiceFullyPaid
	default:
		return OutcomeInvoicePartiallyPaid
	}
}

// Evaluate validates inv, classifies p against the pre-payment state and then
// applies p. Classification never blocks application: a payment reported as
// exceeding the balance, or landing on a settled invoice, is still recorded.
func Evaluate(inv *Invoice, p Payment) (Decision, error) {
	terminal, err := Validate(inv)
	if err != nil {
		return Decision{}, err
	}
	if terminal != "" {
		return Decision{Outcome: terminal}, nil
	}

	outcome := Classify(inv, p.Amount)
	inv.ApplyPayment(p)
	return Decision{Outcome: outcome, Applied: true}, nil
}
