package emissions

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Aretrius/HMM/hsmmlib"
)

// The rate parameters are never allowed to go below this value.
const minPoissonMean = 1e-8

// Poisson emits a vector of NComp independent counts per step.
type Poisson struct {
	// Rates, NState x NComp row-major.
	Lambda []float64

	NState int
	NComp  int
}

// NewPoisson returns a Poisson emission model.
func NewPoisson(nstate, ncomp int) *Poisson {
	return &Poisson{
		Lambda: make([]float64, nstate*ncomp),
		NState: nstate,
		NComp:  ncomp,
	}
}

func (p *Poisson) NumStates() int {
	return p.NState
}

func (p *Poisson) EventShape() int {
	return p.NComp
}

func (p *Poisson) LogProb(data []float64, nobs int, dst []float64) {

	for t := 0; t < nobs; t++ {
		for j := 0; j < p.NState; j++ {
			var lpr float64
			ii := j * p.NComp
			for q := 0; q < p.NComp; q++ {
				lam := p.Lambda[ii+q]
				if lam < minPoissonMean {
					lam = minPoissonMean
				}
				lpr += distuv.Poisson{Lambda: lam}.LogProb(data[t*p.NComp+q])
			}
			dst[t*p.NState+j] = lpr
		}
	}
}

// SupportCheck requires nonnegative integer counts.
func (p *Poisson) SupportCheck(data []float64, nobs int) []bool {

	ok := make([]bool, nobs)
	for t := 0; t < nobs; t++ {
		ok[t] = true
		for q := 0; q < p.NComp; q++ {
			v := data[t*p.NComp+q]
			if v < 0 || v != math.Trunc(v) || math.IsInf(v, 0) {
				ok[t] = false
				break
			}
		}
	}
	return ok
}

// SampleParams seats the rates on jittered multiples of the marginal mean,
// or on the state index plus one when no data is given.
func (p *Poisson) SampleParams(data []float64, nobs int, rng *rand.Rand) {

	if nobs == 0 {
		for j := 0; j < p.NState; j++ {
			for q := 0; q < p.NComp; q++ {
				p.Lambda[j*p.NComp+q] = float64(j + 1)
			}
		}
		return
	}

	mean := make([]float64, p.NComp)
	for t := 0; t < nobs; t++ {
		for q := 0; q < p.NComp; q++ {
			mean[q] += data[t*p.NComp+q]
		}
	}
	for q := range mean {
		mean[q] /= float64(nobs)
	}

	for j := 0; j < p.NState; j++ {
		for q := 0; q < p.NComp; q++ {
			lam := mean[q] * (0.5 + rng.Float64())
			if lam < minPoissonMean {
				lam = minPoissonMean
			}
			p.Lambda[j*p.NComp+q] = lam
		}
	}
}

// UpdateParams computes occupancy-weighted rates, floored at
// minPoissonMean.
func (p *Poisson) UpdateParams(data []float64, nobs int, resp []float64, ctx *hsmmlib.ContextVars) error {

	if ctx != nil {
		return errors.Wrap(hsmmlib.ErrNotImplemented, "contextual re-estimation for poisson emissions")
	}

	for j := 0; j < p.NState; j++ {
		var pt float64
		for t := 0; t < nobs; t++ {
			pt += resp[j*nobs+t]
		}
		if pt < 1e-10 {
			continue
		}

		for q := 0; q < p.NComp; q++ {
			var mn float64
			for t := 0; t < nobs; t++ {
				mn += resp[j*nobs+t] * data[t*p.NComp+q]
			}
			mn /= pt
			if mn < minPoissonMean {
				mn = minPoissonMean
			}
			p.Lambda[j*p.NComp+q] = mn
		}
	}

	return nil
}

func (p *Poisson) Sample(state int, rng *rand.Rand, dst []float64) {
	ii := state * p.NComp
	for q := 0; q < p.NComp; q++ {
		dst[q] = distuv.Poisson{Lambda: p.Lambda[ii+q], Src: rng}.Rand()
	}
}

func (p *Poisson) Clone() hsmmlib.EmissionModel {
	q := NewPoisson(p.NState, p.NComp)
	copy(q.Lambda, p.Lambda)
	return q
}

func (p *Poisson) DoF() int {
	return p.NState * p.NComp
}
