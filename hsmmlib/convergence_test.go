package hsmmlib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConvergenceWindow(t *testing.T) {

	cm := NewConvMonitor(0.01, 10, 1, 2, zap.NewNop().Sugar())

	// Delta sequence 5, 3, 0.005, 0.002 over iterations 0..3.
	for i, d := range []float64{5, 3, 0.005, 0.002} {
		cm.Delta[i][0] = d
	}

	require.False(t, cm.Converged(2, 0))
	require.True(t, cm.Converged(3, 0))
}

func TestConvergenceWindowNotFull(t *testing.T) {

	cm := NewConvMonitor(0.01, 10, 1, 3, zap.NewNop().Sugar())

	cm.Push(-100, 0, 0)
	require.False(t, cm.Converged(0, 0))

	cm.Push(-99.999, 1, 0)
	require.False(t, cm.Converged(1, 0))

	cm.Push(-99.998, 2, 0)
	require.False(t, cm.Converged(2, 0))

	cm.Push(-99.997, 3, 0)
	require.True(t, cm.Converged(3, 0))
}

func TestConvMonitorNilLogger(t *testing.T) {

	cm := NewConvMonitor(0.01, 5, 1, 1, nil)

	require.NotPanics(t, func() {
		cm.Push(-10, 0, 0)
		cm.Push(-9.999, 1, 0)
		cm.Converged(1, 0)
	})
}

func TestPushRecordsDeltas(t *testing.T) {

	cm := NewConvMonitor(0.01, 5, 2, 1, zap.NewNop().Sugar())

	cm.Push(-50, 0, 1)
	require.Equal(t, -50.0, cm.Score[0][1])
	require.True(t, math.IsNaN(cm.Delta[0][1]))

	cm.Push(-47.5, 1, 1)
	require.InDelta(t, 2.5, cm.Delta[1][1], 1e-12)

	// Restart 0 is untouched.
	require.True(t, math.IsNaN(cm.Score[0][0]))
}
