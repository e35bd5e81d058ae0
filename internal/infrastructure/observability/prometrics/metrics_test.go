package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CounterRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("invoicing", "", reg)

	c1 := r.Counter("payment_outcomes_total", "help", "outcome")
	c2 := r.Counter("payment_outcomes_total", "help", "outcome")

	c1.Add(1, observability.L("outcome", "InvoiceFullyPaid"))
	c2.Bind(observability.L("outcome", "InvoiceFullyPaid")).Add(2)

	n, err := testutil.GatherAndCount(reg, "invoicing_payment_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cv := r.(*registry).counters["payment_outcomes_total"]
	assert.InDelta(t, 3, testutil.ToFloat64(cv.WithLabelValues("InvoiceFullyPaid")), 0.0001)
}

func TestRegistry_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("", "", reg)

	h := r.Histogram("usecase_duration_seconds", "help", nil, "use_case")
	h.Observe(0.2, observability.L("use_case", "payment.evaluate"))
	h.Bind(observability.L("use_case", "payment.evaluate")).Observe(0.4)

	n, err := testutil.GatherAndCount(reg, "usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
