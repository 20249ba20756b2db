package benchstat

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReportIncludesObservedSeries(t *testing.T) {
	m := NewMetrics("olc")
	m.ObserveOp("insert", 5*time.Microsecond)
	m.ObserveOp("lookup", 2*time.Microsecond)
	m.ObserveFallback("insert", 3)
	m.ObserveCheckFailure()

	var buf bytes.Buffer
	require.NoError(t, m.WriteReport(&buf))

	out := buf.String()
	assert.Contains(t, out, "bptree_operations_total")
	assert.Contains(t, out, "bptree_operation_duration_seconds")
	assert.Contains(t, out, "bptree_htm_fallbacks_total")
	assert.Contains(t, out, "bptree_check_tree_failures_total")
	assert.Contains(t, out, `variant="olc"`)
}

func TestObserveRetryHistogramSkipsZeroBuckets(t *testing.T) {
	m := NewMetrics("htm")
	var counts [18]uint32
	counts[3] = 7
	m.ObserveRetryHistogram("insert", func(i int) string { return "cause" }, &counts)

	var buf bytes.Buffer
	require.NoError(t, m.WriteReport(&buf))
	assert.Equal(t, 1, strings.Count(buf.String(), "bptree_htm_retries_total{"))
}

func TestTwoMetricsInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("single")
		NewMetrics("coarse")
	})
}
