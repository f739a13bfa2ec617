package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsCount(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDeposit("cashdesk", true, 20*time.Millisecond)
	m.ObserveDeposit("cashdesk", false, time.Second)
	m.ObserveDeposit("cashdesk", false, time.Second)
	m.RequestCreated("deposit", "external")
	m.StatusChanged("deposit", "completed")
	m.ObserveHTTP("GET", "/api/requests", 200, time.Millisecond)
	m.LoginAttempt(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DepositAttemptsTotal.WithLabelValues("cashdesk", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DepositAttemptsTotal.WithLabelValues("cashdesk", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsCreatedTotal.WithLabelValues("deposit", "external")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestStatusChanges.WithLabelValues("deposit", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/requests", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("failure")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDeposit("mostbet", true, time.Second)
		m.RequestCreated("withdraw", "admin")
		m.StatusChanged("withdraw", "rejected")
		m.ObserveHTTP("POST", "/api/payment", 500, time.Second)
		m.LoginAttempt(true)
	})
}

func TestNewPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
