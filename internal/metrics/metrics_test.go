package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingCounter(t *testing.T) {
	before := testutil.ToFloat64(bookings.WithLabelValues(OutcomeConflict))
	Booking(OutcomeConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(bookings.WithLabelValues(OutcomeConflict)))
}

func TestRequestStarted(t *testing.T) {
	done := RequestStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(httpInFlight))
	done(http.MethodGet, "/api/tables", http.StatusOK)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/tables", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	Booking(OutcomeCreated)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "reservation_bookings_total")
}
