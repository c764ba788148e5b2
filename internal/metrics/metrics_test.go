// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCountersAdvance(t *testing.T) {
	before := counterValue(t, SpawnTotal.WithLabelValues("ok"))
	SpawnTotal.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, counterValue(t, SpawnTotal.WithLabelValues("ok")))

	before = counterValue(t, FramesTotal)
	FramesTotal.Inc()
	FrameBytesTotal.Add(1024)
	assert.Equal(t, before+1, counterValue(t, FramesTotal))
}

func TestFaultLabels(t *testing.T) {
	// Every cause used by the sink must be a valid label value.
	for _, cause := range []string{"spawn", "pipe_broken", "unexpected_exit", "write_timeout"} {
		FaultTotal.WithLabelValues(cause).Inc()
		assert.GreaterOrEqual(t, counterValue(t, FaultTotal.WithLabelValues(cause)), float64(1))
	}
}
