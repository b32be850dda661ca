package services

import (
	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
)

type nopMetrics struct{}

// NopMetrics discards every observation.
func NopMetrics() ports.Metrics { return nopMetrics{} }

func (nopMetrics) RecordClick(string, string)             {}
func (nopMetrics) RecordSearch(bool, int)                 {}
func (nopMetrics) RecordProbe(string, domain.ProbeResult) {}
func (nopMetrics) RecordUsageEvents(int, int)             {}
func (nopMetrics) RecordStreamAdded()                     {}

func metricsOrNop(m ports.Metrics) ports.Metrics {
	if m == nil {
		return NopMetrics()
	}
	return m
}
