package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/application"
	dominvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService         = "payment-service"
	useCasePaymentEvaluate = "payment.evaluate"
	paymentSpanName        = "EvaluatePayment"
	spanPrefix             = "UC."
)

type EvaluatePaymentInput struct {
	Reference string
	Amount    decimal.Decimal
}

type EvaluatePaymentResult struct {
	Outcome    dominvoice.Outcome
	AmountPaid decimal.Decimal
	TaxAmount  decimal.Decimal
}

func (r *EvaluatePaymentResult) Message() string { return r.Outcome.Message() }

var _ application.UseCase[EvaluatePaymentInput, *EvaluatePaymentResult] = (*EvaluatePaymentUseCase)(nil)

// EvaluatePaymentUseCase is the payment evaluator: it resolves the invoice,
// classifies and applies the payment, and saves the invoice back.
type EvaluatePaymentUseCase struct {
	store      dominvoice.Store
	publisher  domoutbox.Publisher
	tel        observability.Observability
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
	outcomes   observability.Counter
	pubFailed  observability.Counter
}

// NewEvaluatePaymentUseCase wires the evaluator. publisher and tel may be nil.
func NewEvaluatePaymentUseCase(store dominvoice.Store, publisher domoutbox.Publisher, tel observability.Observability) *EvaluatePaymentUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	return &EvaluatePaymentUseCase{
		store:      store,
		publisher:  publisher,
		tel:        tel,
		log:        tel.Logger().With(observability.F("service", paymentService)),
		reqCounter: metrics.Counter(observability.MUsecaseRequests),
		durHist:    metrics.Histogram(observability.MUsecaseDuration),
		outcomes:   metrics.Counter(observability.MPaymentOutcomes),
		pubFailed:  metrics.Counter(observability.MEventPublishFailed),
	}
}

// Execute evaluates one payment. It fails with dominvoice.ErrInvoiceNotFound or
// dominvoice.ErrInvalidInvoice for the two rejected invoice states; every
// other evaluation succeeds with an outcome, including overpayments.
func (uc *EvaluatePaymentUseCase) Execute(ctx context.Context, cmd EvaluatePaymentInput) (_ *EvaluatePaymentResult, err error) {
	ctx, logger := logctx.Enrich(ctx, uc.log,
		observability.F("use_case", useCasePaymentEvaluate),
		observability.F("reference", cmd.Reference),
		observability.F("amount", cmd.Amount.String()),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+paymentSpanName,
		attribute.String("use_case", useCasePaymentEvaluate),
		attribute.String("invoice.reference", cmd.Reference),
		attribute.String("payment.amount", cmd.Amount.String()),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var result *EvaluatePaymentResult

	defer func() {
		var code dominvoice.Outcome
		if result != nil {
			code = result.Outcome
		} else if c, ok := dominvoice.OutcomeOf(err); ok {
			code = c
		}

		if span != nil {
			span.SetAttributes(attribute.String("payment.outcome", string(code)))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePaymentEvaluate),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(latency,
			observability.L("use_case", useCasePaymentEvaluate),
		)
		if code != "" {
			uc.outcomes.Add(1, observability.L("outcome", string(code)))
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
			observability.F("payment_outcome", string(code)),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	// No invoice carries an empty reference.
	if cmd.Reference == "" {
		outcome, statusText = "rejected", string(dominvoice.OutcomeInvoiceNotFound)
		return nil, dominvoice.ErrInvoiceNotFound
	}

	inv, err := uc.store.Lookup(ctx, cmd.Reference)
	if errors.Is(err, dominvoice.ErrNotFound) {
		outcome, statusText = "rejected", string(dominvoice.OutcomeInvoiceNotFound)
		return nil, dominvoice.ErrInvoiceNotFound
	}
	if err != nil {
		outcome, statusText = "error", "INVOICE_LOOKUP_FAILED"
		return nil, fmt.Errorf("payment: lookup invoice: %w", err)
	}

	decision, err := dominvoice.Evaluate(inv, dominvoice.Payment{Reference: cmd.Reference, Amount: cmd.Amount})
	if err != nil {
		outcome, statusText = "rejected", "INVOICE_REJECTED"
		if code, ok := dominvoice.OutcomeOf(err); ok {
			statusText = string(code)
		}
		return nil, err
	}
	statusText = string(decision.Outcome)

	if decision.Applied {
		if err = uc.store.Save(ctx, inv); err != nil {
			outcome, statusText = "error", "INVOICE_SAVE_FAILED"
			return nil, fmt.Errorf("payment: save invoice: %w", err)
		}
		uc.publish(ctx, logger, dominvoice.NewPaymentEvaluatedEvent(inv, cmd.Amount, decision.Outcome))
	}

	result = &EvaluatePaymentResult{
		Outcome:    decision.Outcome,
		AmountPaid: inv.AmountPaid,
		TaxAmount:  inv.TaxAmount,
	}
	return result, nil
}

// publish is best effort: the invoice is already saved.
func (uc *EvaluatePaymentUseCase) publish(ctx context.Context, logger observability.Logger, e domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, e); err != nil {
		uc.pubFailed.Add(1, observability.L("event", e.EventName()))
		logger.Warn("payment_event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

// Evaluate is the narrow (reference, amount) form of Execute.
func (uc *EvaluatePaymentUseCase) Evaluate(ctx context.Context, reference string, amount decimal.Decimal) (dominvoice.Outcome, error) {
	res, err := uc.Execute(ctx, EvaluatePaymentInput{Reference: reference, Amount: amount})
	if err != nil {
		return "", err
	}
	return res.Outcome, nil
}
