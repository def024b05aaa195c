// Package emissions provides concrete emission distributions for the HSMM
// core.  Each type implements hsmmlib.EmissionModel; the core never depends
// on a particular kind.
package emissions

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/Aretrius/HMM/hsmmlib"
)

// Categorical emits one of NSymbol discrete codes per step.  Observations
// are the codes stored as float64; the event shape is 1.
type Categorical struct {
	// Log emission probabilities, NState x NSymbol row-major.
	Logits []float64

	NState  int
	NSymbol int
	Alpha   float64
}

// NewCategorical returns a categorical emission model for the given number
// of states and symbols with uninitialized parameters; call SampleParams or
// let the model constructor do it.
func NewCategorical(nstate, nsymbol int, alpha float64) *Categorical {
	return &Categorical{
		Logits:  make([]float64, nstate*nsymbol),
		NState:  nstate,
		NSymbol: nsymbol,
		Alpha:   alpha,
	}
}

func (c *Categorical) NumStates() int {
	return c.NState
}

func (c *Categorical) EventShape() int {
	return 1
}

func (c *Categorical) LogProb(data []float64, nobs int, dst []float64) {
	for t := 0; t < nobs; t++ {
		k := int(data[t])
		for j := 0; j < c.NState; j++ {
			dst[t*c.NState+j] = c.Logits[j*c.NSymbol+k]
		}
	}
}

func (c *Categorical) SupportCheck(data []float64, nobs int) []bool {
	ok := make([]bool, nobs)
	for t := 0; t < nobs; t++ {
		v := data[t]
		ok[t] = v == math.Trunc(v) && v >= 0 && v < float64(c.NSymbol)
	}
	return ok
}

// SampleParams draws each state's emission row from Dirichlet(Alpha).  The
// data argument is ignored: symbol frequencies carry no per-state signal
// before states are identified.
func (c *Categorical) SampleParams(data []float64, nobs int, rng *rand.Rand) {

	av := make([]float64, c.NSymbol)
	for i := range av {
		av[i] = c.Alpha
	}

	for j := 0; j < c.NState; j++ {
		row := distmv.NewDirichlet(av, rng).Rand(nil)
		for k, p := range row {
			c.Logits[j*c.NSymbol+k] = math.Log(p)
		}
	}
}

// UpdateParams re-estimates the emission rows from occupancy-weighted
// symbol counts.
func (c *Categorical) UpdateParams(data []float64, nobs int, resp []float64, ctx *hsmmlib.ContextVars) error {

	if ctx != nil {
		return errors.Wrap(hsmmlib.ErrNotImplemented, "contextual re-estimation for categorical emissions")
	}

	counts := make([]float64, c.NSymbol)
	for j := 0; j < c.NState; j++ {
		for k := range counts {
			counts[k] = 0
		}
		for t := 0; t < nobs; t++ {
			counts[int(data[t])] += resp[j*nobs+t]
		}

		tot := floats.Sum(counts)
		if tot < 1e-10 {
			// Unoccupied state, fall back to uniform.
			for k := range counts {
				c.Logits[j*c.NSymbol+k] = -math.Log(float64(c.NSymbol))
			}
			continue
		}
		for k, v := range counts {
			c.Logits[j*c.NSymbol+k] = math.Log(v / tot)
		}
	}

	return nil
}

func (c *Categorical) Sample(state int, rng *rand.Rand, dst []float64) {

	u := rng.Float64()
	cum := 0.0
	k := c.NSymbol - 1
	for i := 0; i < c.NSymbol; i++ {
		cum += math.Exp(c.Logits[state*c.NSymbol+i])
		if u < cum {
			k = i
			break
		}
	}
	dst[0] = float64(k)
}

func (c *Categorical) Clone() hsmmlib.EmissionModel {
	q := NewCategorical(c.NState, c.NSymbol, c.Alpha)
	copy(q.Logits, c.Logits)
	return q
}

func (c *Categorical) DoF() int {
	return c.NState * (c.NSymbol - 1)
}
