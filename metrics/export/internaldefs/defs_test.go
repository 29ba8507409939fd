package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/stretchr/testify/require"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goSession.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		require.False(t, seen[def.ID], "duplicate id %d", def.ID)
		require.False(t, names[def.Name], "duplicate name %s", def.Name)
		require.True(t, strings.HasPrefix(def.Name, "gosession_"))
		require.True(t, strings.HasSuffix(def.Name, "_total"))
		seen[def.ID] = true
		names[def.Name] = true
	}

	m := goSession.NewMetrics(goSession.MetricsConfig{Enabled: true})
	for id := range m.Snapshot().Counters {
		require.True(t, seen[id], "counter %d has no export definition", id)
	}
}

func TestBucketHelpers(t *testing.T) {
	require.Len(t, HistogramBounds, 8)
	require.Len(t, HistogramBoundSuffix, 8)
	require.Len(t, HistogramUpperBounds, 7)

	norm := NormalizeBuckets([]uint64{1, 2, 3})
	require.Equal(t, [8]uint64{1, 2, 3}, norm)

	cum := CumulativeBuckets([8]uint64{1, 1, 1, 1, 1, 1, 1, 1})
	require.Equal(t, [8]uint64{1, 2, 3, 4, 5, 6, 7, 8}, cum)
}
