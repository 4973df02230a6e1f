package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionMetrics(t *testing.T) {
	registry := NewRegistry()
	m := NewSubscriptionMetrics(registry, logger.NewNop())

	m.ObserveOperation("subscribe", domain.CategoryTV, "created")
	m.ObserveOperation("subscribe", domain.CategoryTV, "created")
	m.ObserveOperation("subscribe", "", "rejected")
	m.AddRevenue(domain.CategoryTV, decimal.RequireFromString("24.00"))
	m.AddRevenue(domain.CategoryTV, decimal.NewFromInt(5))
	m.AddRevenue(domain.CategoryTV, decimal.NewFromInt(-1))
	m.ObserveSweepTransition("expired")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("subscribe", "TV", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("subscribe", "unknown", "rejected")))
	assert.Equal(t, 29.0, testutil.ToFloat64(m.revenue.WithLabelValues("TV")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("expired")))

	expected := `
# HELP subscription_sweep_transitions_total Status changes applied by the expiry sweeper
# TYPE subscription_sweep_transitions_total counter
subscription_sweep_transitions_total{transition="expired"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "subscription_sweep_transitions_total"))
}

func TestRegistryHasRuntimeCollectors(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}

func TestHTTPMetrics(t *testing.T) {
	registry := NewRegistry()
	m := NewHTTPMetrics(registry)

	m.ObserveRequest("GET", "/api/v1/plans", 200, 15*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/plans", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}
