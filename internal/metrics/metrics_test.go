package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoreWithSeparateRegistries(t *testing.T) {
	// Two cores for the same service must coexist when given their own
	// registries (one process hosting several services, or tests).
	var c1, c2 *Core
	assert.NotPanics(t, func() {
		c1 = NewCore("market-api", prometheus.NewRegistry())
		c2 = NewCore("market-api", prometheus.NewRegistry())
	})

	c1.Observe("checkout", "ok", 12)
	c1.Observe("checkout", "ok", 3)
	c2.Observe("pay", "error", 8)

	assert.Equal(t, 2.0, testutil.ToFloat64(c1.Operations.WithLabelValues("checkout", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c1.Operations.WithLabelValues("pay", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c2.Operations.WithLabelValues("pay", "error")))
}

func TestNewCoreSanitizesServiceName(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCore("market-api", reg)
	c.Observe("checkout", "ok", 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "marketplace_market_api_order_operations_total")
	assert.Contains(t, names, "marketplace_market_api_order_operation_duration_ms")
}
