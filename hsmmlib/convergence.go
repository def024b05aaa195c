package hsmmlib

import (
	"math"

	"go.uber.org/zap"
)

// ConvMonitor records the per-iteration, per-restart log-likelihood during a
// fit and decides when a restart has converged.  Score and Delta are
// (maxIter+1) x nInit, indexed by iteration and restart, NaN where no value
// has been pushed; both are reset when a new monitor is built at the start
// of each fit call.
type ConvMonitor struct {
	Tol          float64
	MaxIter      int
	NInit        int
	PostConvIter int

	Score [][]float64
	Delta [][]float64

	logger *zap.SugaredLogger
}

// NewConvMonitor returns a monitor with all score and delta cells set to
// NaN.  A nil logger makes the monitor silent.
func NewConvMonitor(tol float64, maxIter, nInit, postConvIter int, logger *zap.SugaredLogger) *ConvMonitor {

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	cm := &ConvMonitor{
		Tol:          tol,
		MaxIter:      maxIter,
		NInit:        nInit,
		PostConvIter: postConvIter,
		Score:        makeFloatArray(maxIter+1, nInit),
		Delta:        makeFloatArray(maxIter+1, nInit),
		logger:       logger,
	}
	for i := range cm.Score {
		for r := range cm.Score[i] {
			cm.Score[i][r] = math.NaN()
			cm.Delta[i][r] = math.NaN()
		}
	}

	return cm
}

// Push records a score for the given iteration and restart, along with its
// delta from the previous iteration.  The delta at iteration 0 is NaN.
func (cm *ConvMonitor) Push(score float64, iter, rank int) {
	cm.Score[iter][rank] = score
	if iter > 0 {
		cm.Delta[iter][rank] = score - cm.Score[iter-1][rank]
	}

	if iter == 0 {
		cm.logger.Infow("initial score", "run", rank+1, "score", score)
	} else {
		cm.logger.Infow("iteration", "run", rank+1, "iter", iter,
			"score", score, "delta", cm.Delta[iter][rank])
	}
}

// Converged reports whether the trailing window of PostConvIter deltas for
// the restart are all below Tol.  It is false whenever the window is not yet
// full.
func (cm *ConvMonitor) Converged(iter, rank int) bool {

	if iter < cm.PostConvIter {
		return false
	}
	for i := iter - cm.PostConvIter + 1; i <= iter; i++ {
		d := cm.Delta[i][rank]
		if math.IsNaN(d) || d >= cm.Tol {
			return false
		}
	}

	cm.logger.Infow("converged", "run", rank+1, "iter", iter, "score", cm.Score[iter][rank])
	return true
}

// PushPull records a score and reports convergence in one step.
func (cm *ConvMonitor) PushPull(score float64, iter, rank int) bool {
	cm.Push(score, iter, rank)
	return cm.Converged(iter, rank)
}
