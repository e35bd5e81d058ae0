package workerpresentation

import (
	"context"

	appPayment "github.com/Zhima-Mochi/minishop-invoicing/internal/application/payment"
	dominvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

const componentPaymentWorker = "payment_worker"

// PaymentEvaluator is the application entry point the worker drives.
type PaymentEvaluator interface {
	Execute(ctx context.Context, cmd appPayment.EvaluatePaymentInput) (*appPayment.EvaluatePaymentResult, error)
}

// PaymentWorker evaluates payments that arrive as PaymentReceivedEvent.
type PaymentWorker struct {
	subscriber domoutbox.Subscriber
	evaluator  PaymentEvaluator
	log        observability.Logger
}

func NewPaymentWorker(subscriber domoutbox.Subscriber, evaluator PaymentEvaluator, tel observability.Observability) *PaymentWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &PaymentWorker{
		subscriber: subscriber,
		evaluator:  evaluator,
		log:        tel.Logger().With(observability.F("component", componentPaymentWorker)),
	}
}

func (w *PaymentWorker) Start() {
	if w.subscriber == nil || w.evaluator == nil {
		return
	}
	w.subscriber.Subscribe(dominvoice.PaymentReceivedEvent{}.EventName(), domoutbox.Typed(w.handlePaymentReceived))
}

func (w *PaymentWorker) handlePaymentReceived(ctx context.Context, evt dominvoice.PaymentReceivedEvent) error {
	sc := trace.SpanContextFromContext(ctx)
	ctx = WithEventContext(ctx, w.log, sc.TraceID(), sc.SpanID(), map[string]string{
		"event_id": evt.EventID,
		"event":    evt.EventName(),
	})

	logger := logctx.FromOr(ctx, w.log)

	res, err := w.evaluator.Execute(ctx, appPayment.EvaluatePaymentInput{
		Reference: evt.Reference,
		Amount:    evt.Amount,
	})
	if err != nil {
		// Rejected invoices are final; nothing to retry.
		if code, rejected := dominvoice.OutcomeOf(err); rejected {
			logger.Warn("payment_rejected",
				observability.F("reference", evt.Reference),
				observability.F("outcome", string(code)),
			)
			return nil
		}
		return err
	}

	logger.Info("payment_processed",
		observability.F("reference", evt.Reference),
		observability.F("outcome", string(res.Outcome)),
	)
	return nil
}
