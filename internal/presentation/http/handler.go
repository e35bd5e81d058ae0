package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/application"
	appInvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/application/invoice"
	appPayment "github.com/Zhima-Mochi/minishop-invoicing/internal/application/payment"
	dominvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
)

type PaymentEvaluator = application.UseCase[appPayment.EvaluatePaymentInput, *appPayment.EvaluatePaymentResult]

type InvoiceService interface {
	Register(ctx context.Context, in appInvoice.RegisterInvoiceInput) (*dominvoice.Invoice, error)
	Get(ctx context.Context, reference string) (*dominvoice.Invoice, error)
}

type Handler struct {
	evaluator PaymentEvaluator
	invoices  InvoiceService
	publisher domoutbox.Publisher
	log       observability.Logger
	requests  observability.Counter
	durations observability.Histogram
}

// NewHandler builds the HTTP surface. publisher may be nil, in which case
// asynchronous payment submission is unavailable.
func NewHandler(evaluator PaymentEvaluator, invoices InvoiceService, publisher domoutbox.Publisher, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		evaluator: evaluator,
		invoices:  invoices,
		publisher: publisher,
		log:       tel.Logger().With(observability.F("component", componentHTTPHandler)),
		requests:  tel.Metrics().Counter(observability.MHTTPRequests),
		durations: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	h.handle(r, http.MethodPost, "/invoices", h.handleRegisterInvoice)
	h.handle(r, http.MethodGet, "/invoices/{reference}", h.handleGetInvoice)
	h.handle(r, http.MethodPost, "/payments", h.handleEvaluatePayment)
	h.handle(r, http.MethodPost, "/payments/async", h.handleSubmitPayment)
	h.handle(r, http.MethodGet, "/health", h.handleHealth)

	return r
}

// handle wraps each route: Trace → request logger → metrics → access log → handler.
func (h *Handler) handle(r chi.Router, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
		)(
			h.withHTTPMetrics(
				h.withAccessLog(handler),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), method+" "+route)))
	}))
}

type paymentJSON struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

type registerInvoiceRequest struct {
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Type       string          `json:"type"`
	Payments   []paymentJSON   `json:"payments"`
}

type invoiceResponse struct {
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Balance    decimal.Decimal `json:"balance"`
	Type       dominvoice.Type `json:"type"`
	Payments   []paymentJSON   `json:"payments"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toInvoiceResponse(inv *dominvoice.Invoice) invoiceResponse {
	resp := invoiceResponse{
		Reference:  inv.Reference,
		Amount:     inv.Amount,
		AmountPaid: inv.AmountPaid,
		TaxAmount:  inv.TaxAmount,
		Balance:    inv.Balance(),
		Type:       inv.Type,
		Payments:   make([]paymentJSON, 0, len(inv.Payments)),
		CreatedAt:  inv.CreatedAt,
		UpdatedAt:  inv.UpdatedAt,
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, paymentJSON{Reference: p.Reference, Amount: p.Amount})
	}
	return resp
}

func (h *Handler) handleRegisterInvoice(w http.ResponseWriter, r *http.Request) {
	var req registerInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	typ, err := dominvoice.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	in := appInvoice.RegisterInvoiceInput{
		Reference:  req.Reference,
		Amount:     req.Amount,
		AmountPaid: req.AmountPaid,
		TaxAmount:  req.TaxAmount,
		Type:       typ,
	}
	for _, p := range req.Payments {
		in.Payments = append(in.Payments, dominvoice.Payment{Reference: p.Reference, Amount: p.Amount})
	}

	inv, err := h.invoices.Register(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.Get(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type evaluatePaymentResponse struct {
	Reference  string             `json:"reference"`
	Outcome    dominvoice.Outcome `json:"outcome"`
	Message    string             `json:"message"`
	AmountPaid decimal.Decimal    `json:"amount_paid"`
	TaxAmount  decimal.Decimal    `json:"tax_amount"`
}

func (h *Handler) handleEvaluatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.evaluator.Execute(r.Context(), appPayment.EvaluatePaymentInput{
		Reference: req.Reference,
		Amount:    req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluatePaymentResponse{
		Reference:  req.Reference,
		Outcome:    res.Outcome,
		Message:    res.Message(),
		AmountPaid: res.AmountPaid,
		TaxAmount:  res.TaxAmount,
	})
}

type submitPaymentResponse struct {
	EventID   string `json:"event_id"`
	Reference string `json:"reference"`
}

func (h *Handler) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		writeError(w, http.StatusNotImplemented, errors.New("asynchronous payments are disabled"))
		return
	}
	var req paymentJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Reference == "" {
		writeDomainError(w, dominvoice.ErrInvoiceNotFound)
		return
	}

	evt := dominvoice.NewPaymentReceivedEvent(uuid.NewString(), dominvoice.Payment{Reference: req.Reference, Amount: req.Amount})
	if err := h.publisher.Publish(r.Context(), evt); err != nil {
		logctx.FromOr(r.Context(), h.log).Error("payment_enqueue_failed",
			observability.F("reference", req.Reference),
			observability.F("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitPaymentResponse{EventID: evt.EventID, Reference: req.Reference})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("invoicing.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-style HTTP metrics on instruments created at startup.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.requests.Add(1, labels...)
		h.durations.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type outcomeErrorResponse struct {
	Outcome dominvoice.Outcome `json:"outcome"`
	Message string             `json:"message"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	if code, ok := dominvoice.OutcomeOf(err); ok {
		status := http.StatusUnprocessableEntity
		if code == dominvoice.OutcomeInvoiceNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, outcomeErrorResponse{Outcome: code, Message: code.Message()})
		return
	}

	switch {
	case errors.Is(err, dominvoice.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dominvoice.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, dominvoice.ErrReferenceRequired),
		errors.Is(err, dominvoice.ErrInvalidAmount),
		errors.Is(err, dominvoice.ErrInvalidType):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
