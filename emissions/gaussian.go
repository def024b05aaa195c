package emissions

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Aretrius/HMM/hsmmlib"
)

// The standard deviations are never allowed to go below this value.
const sdmin = 1e-8

// Gaussian emits a vector of NComp independent normal components per step.
type Gaussian struct {
	// Means and standard deviations, NState x NComp row-major.
	Mean []float64
	Std  []float64

	NState int
	NComp  int
}

// NewGaussian returns a diagonal-covariance Gaussian emission model.
func NewGaussian(nstate, ncomp int) *Gaussian {
	return &Gaussian{
		Mean:   make([]float64, nstate*ncomp),
		Std:    make([]float64, nstate*ncomp),
		NState: nstate,
		NComp:  ncomp,
	}
}

func (g *Gaussian) NumStates() int {
	return g.NState
}

func (g *Gaussian) EventShape() int {
	return g.NComp
}

func (g *Gaussian) LogProb(data []float64, nobs int, dst []float64) {

	for t := 0; t < nobs; t++ {
		for j := 0; j < g.NState; j++ {
			var lpr float64
			ii := j * g.NComp
			for q := 0; q < g.NComp; q++ {
				n := distuv.Normal{Mu: g.Mean[ii+q], Sigma: g.Std[ii+q]}
				lpr += n.LogProb(data[t*g.NComp+q])
			}
			dst[t*g.NState+j] = lpr
		}
	}
}

// SupportCheck rejects only non-finite values; the support is the real line.
func (g *Gaussian) SupportCheck(data []float64, nobs int) []bool {

	ok := make([]bool, nobs)
	for t := 0; t < nobs; t++ {
		ok[t] = true
		for q := 0; q < g.NComp; q++ {
			v := data[t*g.NComp+q]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ok[t] = false
				break
			}
		}
	}
	return ok
}

// SampleParams initializes the means from the marginal moments of the data,
// jittered per state, and the standard deviations from the marginal spread.
// Without data the states are seated on the integers with unit spread.
func (g *Gaussian) SampleParams(data []float64, nobs int, rng *rand.Rand) {

	if nobs == 0 {
		for j := 0; j < g.NState; j++ {
			for q := 0; q < g.NComp; q++ {
				g.Mean[j*g.NComp+q] = float64(j) + 0.1*rng.NormFloat64()
				g.Std[j*g.NComp+q] = 1
			}
		}
		return
	}

	mean, std := marginalMoments(data, nobs, g.NComp)
	for j := 0; j < g.NState; j++ {
		for q := 0; q < g.NComp; q++ {
			g.Mean[j*g.NComp+q] = mean[q] + std[q]*rng.NormFloat64()
			g.Std[j*g.NComp+q] = std[q]
		}
	}
}

// UpdateParams computes occupancy-weighted means and standard deviations,
// flooring the latter at sdmin.
func (g *Gaussian) UpdateParams(data []float64, nobs int, resp []float64, ctx *hsmmlib.ContextVars) error {

	if ctx != nil {
		return errors.Wrap(hsmmlib.ErrNotImplemented, "contextual re-estimation for gaussian emissions")
	}

	for j := 0; j < g.NState; j++ {
		var pt float64
		for t := 0; t < nobs; t++ {
			pt += resp[j*nobs+t]
		}
		if pt < 1e-10 {
			continue
		}

		for q := 0; q < g.NComp; q++ {
			var mn float64
			for t := 0; t < nobs; t++ {
				mn += resp[j*nobs+t] * data[t*g.NComp+q]
			}
			mn /= pt

			var vr float64
			for t := 0; t < nobs; t++ {
				y := data[t*g.NComp+q] - mn
				vr += resp[j*nobs+t] * y * y
			}
			sd := math.Sqrt(vr / pt)
			if sd < sdmin {
				sd = sdmin
			}

			g.Mean[j*g.NComp+q] = mn
			g.Std[j*g.NComp+q] = sd
		}
	}

	return nil
}

func (g *Gaussian) Sample(state int, rng *rand.Rand, dst []float64) {
	ii := state * g.NComp
	for q := 0; q < g.NComp; q++ {
		dst[q] = g.Mean[ii+q] + g.Std[ii+q]*rng.NormFloat64()
	}
}

func (g *Gaussian) Clone() hsmmlib.EmissionModel {
	q := NewGaussian(g.NState, g.NComp)
	copy(q.Mean, g.Mean)
	copy(q.Std, g.Std)
	return q
}

func (g *Gaussian) DoF() int {
	return 2 * g.NState * g.NComp
}

// marginalMoments calculates the mean and standard deviation of each
// observed component over the whole batch.
func marginalMoments(data []float64, nobs, ncomp int) ([]float64, []float64) {

	mean := make([]float64, ncomp)
	for t := 0; t < nobs; t++ {
		for q := 0; q < ncomp; q++ {
			mean[q] += data[t*ncomp+q]
		}
	}
	for q := range mean {
		mean[q] /= float64(nobs)
	}

	std := make([]float64, ncomp)
	for t := 0; t < nobs; t++ {
		for q := 0; q < ncomp; q++ {
			y := data[t*ncomp+q] - mean[q]
			std[q] += y * y
		}
	}
	for q := range std {
		std[q] = math.Sqrt(std[q] / float64(nobs))
		if std[q] < sdmin {
			std[q] = 1
		}
	}

	return mean, std
}
