package hsmmlib

import (
	"golang.org/x/exp/rand"
)

// EmissionModel is the pluggable observation distribution.  The duration and
// transition core is agnostic of the emission kind; a model holds one value
// implementing this interface and delegates everything observation-specific
// to it.
//
// Data slices are flat row-major with EventShape values per sample.
type EmissionModel interface {

	// NumStates returns the number of hidden states the parameters cover.
	NumStates() int

	// EventShape returns the dimension of a single observation vector.
	EventShape() int

	// LogProb writes the per-state log-likelihood of each sample into dst,
	// which is nobs x NumStates row-major.
	LogProb(data []float64, nobs int, dst []float64)

	// SupportCheck reports, per sample, whether every component lies in
	// the support of the distribution.
	SupportCheck(data []float64, nobs int) []bool

	// SampleParams draws fresh emission parameters.  When data is non-nil
	// the draw may be informed by it (e.g. moment matching); nobs is the
	// number of samples in data.
	SampleParams(data []float64, nobs int, rng *rand.Rand)

	// UpdateParams re-estimates the emission parameters from the
	// occupancy-weighted responsibilities resp, which is
	// NumStates x nobs row-major in the probability domain.  The optional
	// contextual variables are consumed only here, never by the lattice
	// recursions.
	UpdateParams(data []float64, nobs int, resp []float64, ctx *ContextVars) error

	// Sample draws one observation vector from the given state into dst.
	Sample(state int, rng *rand.Rand, dst []float64)

	// Clone returns a deep copy of the emission model.  The fit loop uses
	// it to retain the emission parameters of the best-scoring restart.
	Clone() EmissionModel

	// DoF returns the number of free emission parameters.
	DoF() int
}
