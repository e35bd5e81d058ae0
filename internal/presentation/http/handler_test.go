package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	appInvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/application/invoice"
	appPayment "github.com/Zhima-Mochi/minishop-invoicing/internal/application/payment"
	dominvoice "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/infrastructure/observability/prometrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (c *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

type fixture struct {
	router    http.Handler
	repo      *memory.InvoiceRepository
	publisher *capturePublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.NewInvoiceRepository()
	pub := &capturePublisher{}
	h := NewHandler(
		appPayment.NewEvaluatePaymentUseCase(repo, nil, nil),
		appInvoice.NewService(repo, nil),
		pub,
		nil,
	)
	return fixture{router: h.Router(), repo: repo, publisher: pub}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterAndGetInvoice(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/invoices", `{"reference":"INV001","amount":"10000.00","type":"commercial"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/invoices", `{"reference":"INV001","amount":"10000.00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/invoices/INV001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INV001", body["reference"])
	assert.Equal(t, "commercial", body["type"])
	assert.Equal(t, "10000", body["balance"])

	rec = f.do(t, http.MethodGet, "/invoices/MISSING", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterInvoice_BadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "unknown field", body: `{"reference":"INV001","amount":"1","extra":true}`},
		{name: "unknown type", body: `{"reference":"INV001","amount":"1","type":"gold"}`},
		{name: "missing reference", body: `{"amount":"1"}`},
		{name: "negative amount", body: `{"reference":"INV001","amount":"-1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/invoices", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestEvaluatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Insert(ctx, &dominvoice.Invoice{
		Reference: "INV001",
		Amount:    decimal.RequireFromString("10000.00"),
	}))
	require.NoError(t, f.repo.Insert(ctx, &dominvoice.Invoice{
		Reference: "ZERO",
		Amount:    decimal.Zero,
		Payments:  []dominvoice.Payment{{Reference: "ZERO", Amount: decimal.RequireFromString("5")}},
	}))

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantOutcome dominvoice.Outcome
	}{
		{
			name:        "partial payment",
			body:        `{"reference":"INV001","amount":"2500.00"}`,
			wantStatus:  http.StatusOK,
			wantOutcome: dominvoice.OutcomeInvoicePartiallyPaid,
		},
		{
			name:        "unknown invoice",
			body:        `{"reference":"MISSING","amount":"1"}`,
			wantStatus:  http.StatusNotFound,
			wantOutcome: dominvoice.OutcomeInvoiceNotFound,
		},
		{
			name:        "invalid invoice",
			body:        `{"reference":"ZERO","amount":"1"}`,
			wantStatus:  http.StatusUnprocessableEntity,
			wantOutcome: dominvoice.OutcomeInvalidInvoice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/payments", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, string(tt.wantOutcome), body["outcome"])
			assert.Equal(t, tt.wantOutcome.Message(), body["message"])
		})
	}

	inv, err := f.repo.Lookup(ctx, "INV001")
	require.NoError(t, err)
	assert.True(t, inv.AmountPaid.Equal(decimal.RequireFromString("2500")))
}

func TestEvaluatePayment_BadInput(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/payments", `not json`).Code)

	rec := f.do(t, http.MethodPost, "/payments", `{"amount":"1"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(dominvoice.OutcomeInvoiceNotFound), decodeBody(t, rec)["outcome"])

	rec = f.do(t, http.MethodPost, "/payments/async", `{"amount":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.publisher.events)
}

func TestEvaluatePayment_NegativeAmount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.Insert(context.Background(), &dominvoice.Invoice{
		Reference: "INV1",
		Amount:    decimal.RequireFromString("100"),
	}))

	rec := f.do(t, http.MethodPost, "/payments", `{"reference":"INV1","amount":"-5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(dominvoice.OutcomeInvoicePartiallyPaid), body["outcome"])
	assert.Equal(t, "-5", body["amount_paid"])

	rec = f.do(t, http.MethodPost, "/payments/async", `{"reference":"INV1","amount":"-5"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSubmitPayment_Enqueues(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/payments/async", `{"reference":"INV001","amount":"10"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["event_id"])

	require.Len(t, f.publisher.events, 1)
	evt, ok := f.publisher.events[0].(dominvoice.PaymentReceivedEvent)
	require.True(t, ok)
	assert.Equal(t, "INV001", evt.Reference)
	assert.Equal(t, body["event_id"], evt.EventID)
}

func TestSubmitPayment_DisabledWithoutPublisher(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	h := NewHandler(appPayment.NewEvaluatePaymentUseCase(repo, nil, nil), appInvoice.NewService(repo, nil), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/payments/async", strings.NewReader(`{"reference":"INV001","amount":"10"}`))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))

	rec = f.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestHTTPMetricsUseRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := infraobs.Instruments(prometrics.New("", "", reg))
	tel := infraobs.New(nil, nil, counters, histograms)

	repo := memory.NewInvoiceRepository()
	h := NewHandler(appPayment.NewEvaluatePaymentUseCase(repo, nil, tel), appInvoice.NewService(repo, nil), nil, tel)
	router := h.Router()

	for _, ref := range []string{"A", "B"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/"+ref, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="GET /invoices/{reference}",status="404"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))
}
