package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/pkg/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusCollector(reg)

	p.RecordClick("python", OutcomeOK)
	p.RecordClick("python", OutcomeOK)
	p.RecordClick("node", OutcomeDenied)
	assert.Equal(t, 2.0, testutil.ToFloat64(p.clicksTotal.WithLabelValues("python", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.clicksTotal.WithLabelValues("node", OutcomeDenied)))

	latency := int64(42)
	p.RecordProbe("wss", domain.ProbeResult{Reachable: true, LatencyMS: &latency})
	p.RecordProbe("https", domain.ProbeResult{Reachable: false, Error: "timeout"})
	assert.Equal(t, 1.0, testutil.ToFloat64(p.probesTotal.WithLabelValues("wss", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.probesTotal.WithLabelValues("https", "false")))

	p.RecordUsageEvents(3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(p.usageEventsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.usageEventsFailed))

	p.RecordSearch(true, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.searchesTotal.WithLabelValues("filtered")))

	p.RecordHTTPRequest("GET", "/api/streams", 503, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/api/streams", "5xx")))
}

func TestHealthChecker_CheckAll(t *testing.T) {
	h := NewHealthChecker()
	h.AddPingCheck("store", func(ctx context.Context) error { return nil }, time.Second)
	assert.True(t, h.IsReady(context.Background()))

	state := circuitbreaker.StateOpen
	h.AddBreakerCheck("store_circuit", func() circuitbreaker.State { return state })
	h.AddPingCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") }, time.Second)

	status := h.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["store"])
	assert.Equal(t, "connection refused", status.Checks["redis"])
	assert.Contains(t, status.Checks["store_circuit"], "open")
}
