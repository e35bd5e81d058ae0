package invoice

import "errors"

// Outcome classifies how a payment relates to an invoice's state.
type Outcome string

const (
	OutcomeInvoiceNotFound                 Outcome = "InvoiceNotFound"
	OutcomeInvalidInvoice                  Outcome = "InvalidInvoice"
	OutcomeNoPaymentNeeded                 Outcome = "NoPaymentNeeded"
	OutcomeInvoiceAlreadyFullyPaid         Outcome = "InvoiceAlreadyFullyPaid"
	OutcomePaymentGreaterThanRemaining     Outcome = "PaymentGreaterThanRemaining"
	OutcomePaymentGreaterThanInvoiceAmount Outcome = "PaymentGreaterThanInvoiceAmount"
	OutcomeFinalPaymentReceived            Outcome = "FinalPaymentReceived"
	OutcomePartialPaymentReceived          Outcome = "PartialPaymentReceived"
	OutcomeInvoiceFullyPaid                Outcome = "InvoiceFullyPaid"
	OutcomeInvoicePartiallyPaid            Outcome = "InvoicePartiallyPaid"
)

var outcomes = []Outcome{
	OutcomeInvoiceNotFound,
	OutcomeInvalidInvoice,
	OutcomeNoPaymentNeeded,
	OutcomeInvoiceAlreadyFullyPaid,
	OutcomePaymentGreaterThanRemaining,
	OutcomePaymentGreaterThanInvoiceAmount,
	OutcomeFinalPaymentReceived,
	OutcomePartialPaymentReceived,
	OutcomeInvoiceFullyPaid,
	OutcomeInvoicePartiallyPaid,
}

// messages is read-only after package init.
var messages = map[Outcome]string{
	OutcomeInvoiceNotFound:                 "No invoice matching this payment.",
	OutcomeInvalidInvoice:                  "Invalid invoice: amount is zero but payments exist.",
	OutcomeNoPaymentNeeded:                 "Payment not required.",
	OutcomeInvoiceAlreadyFullyPaid:         "Invoice was already fully paid.",
	OutcomePaymentGreaterThanRemaining:     "Payment exceeds the remaining invoice balance.",
	OutcomePaymentGreaterThanInvoiceAmount: "Payment exceeds the invoice amount.",
	OutcomeFinalPaymentReceived:            "Final payment received. Invoice is now fully paid.",
	OutcomePartialPaymentReceived:          "Partial payment received. Invoice remains partially unpaid.",
	OutcomeInvoiceFullyPaid:                "Invoice has been fully paid.",
	OutcomeInvoicePartiallyPaid:            "Invoice has been partially paid.",
}

// Outcomes lists every outcome code in a stable order.
func Outcomes() []Outcome {
	return append([]Outcome(nil), outcomes...)
}

func (o Outcome) Valid() bool {
	_, ok := messages[o]
	return ok
}

// Message returns the display text for o, or the code itself when unknown.
func (o Outcome) Message() string {
	if m, ok := messages[o]; ok {
		return m
	}
	return string(o)
}

func (o Outcome) String() string { return string(o) }

// OutcomeError is an evaluation failure that carries its outcome code.
type OutcomeError struct {
	Outcome Outcome
}

func (e *OutcomeError) Error() string { return e.Outcome.Message() }

var (
	ErrInvoiceNotFound = &OutcomeError{Outcome: OutcomeInvoiceNotFound}
	ErrInvalidInvoice  = &OutcomeError{Outcome: OutcomeInvalidInvoice}
)

// OutcomeOf extracts the outcome code carried by err, if any.
func OutcomeOf(err error) (Outcome, bool) {
	var oe *OutcomeError
	if errors.As(err, &oe) {
		return oe.Outcome, true
	}
	return "", false
}
