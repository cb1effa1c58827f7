package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New("procflow", nil)

	m.OrdersCreated.WithLabelValues("scan").Inc()
	m.ObserveHTTP(http.MethodGet, "/api/purchase-orders", 200, 20*time.Millisecond)
	m.TrackDB("tx", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated.WithLabelValues("scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/purchase-orders", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "procflow_purchase_orders_created_total")
	assert.Contains(t, rec.Body.String(), `operation="tx_error"`)
}
