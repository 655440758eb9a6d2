package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	assert.NotPanics(t, Register)
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(notifications.WithLabelValues("sms", "delivered"))
	IncNotification("sms", "delivered")
	assert.Equal(t, before+1, testutil.ToFloat64(notifications.WithLabelValues("sms", "delivered")))

	before = testutil.ToFloat64(httpRequests.WithLabelValues("/api/bookings", "2xx"))
	IncHTTP("/api/bookings", "2xx")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/api/bookings", "2xx")))

	before = testutil.ToFloat64(jobEvents.WithLabelValues("payment_completed"))
	IncJobEvent("payment_completed")
	assert.Equal(t, before+1, testutil.ToFloat64(jobEvents.WithLabelValues("payment_completed")))
}
