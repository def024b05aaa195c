package hsmmlib

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// tCat is a minimal categorical emission used by the package tests, so that
// the core can be tested against the plugin contract alone.
type tCat struct {
	logits []float64
	ns, nk int
}

func newTCat(ns, nk int) *tCat {
	t := &tCat{logits: make([]float64, ns*nk), ns: ns, nk: nk}
	for j := 0; j < ns; j++ {
		row := t.logits[j*nk : (j+1)*nk]
		for k := range row {
			if k == j%nk {
				row[k] = math.Log(0.7)
			} else {
				row[k] = math.Log(0.3 / float64(nk-1))
			}
		}
	}
	return t
}

func (c *tCat) NumStates() int { return c.ns }

func (c *tCat) EventShape() int { return 1 }

func (c *tCat) LogProb(data []float64, nobs int, dst []float64) {
	for t := 0; t < nobs; t++ {
		for j := 0; j < c.ns; j++ {
			dst[t*c.ns+j] = c.logits[j*c.nk+int(data[t])]
		}
	}
}

func (c *tCat) SupportCheck(data []float64, nobs int) []bool {
	ok := make([]bool, nobs)
	for t := 0; t < nobs; t++ {
		v := data[t]
		ok[t] = v == math.Trunc(v) && v >= 0 && v < float64(c.nk)
	}
	return ok
}

func (c *tCat) SampleParams(data []float64, nobs int, rng *rand.Rand) {
	for j := 0; j < c.ns; j++ {
		row := c.logits[j*c.nk : (j+1)*c.nk]
		for k := range row {
			row[k] = math.Log(rng.Float64() + 0.1)
		}
		logNormalize(row)
	}
}

func (c *tCat) UpdateParams(data []float64, nobs int, resp []float64, ctx *ContextVars) error {
	if ctx != nil {
		return ErrNotImplemented
	}
	counts := make([]float64, c.nk)
	for j := 0; j < c.ns; j++ {
		for k := range counts {
			counts[k] = 0
		}
		for t := 0; t < nobs; t++ {
			counts[int(data[t])] += resp[j*nobs+t]
		}
		tot := floats.Sum(counts)
		for k, v := range counts {
			if tot < 1e-10 {
				c.logits[j*c.nk+k] = -math.Log(float64(c.nk))
			} else {
				c.logits[j*c.nk+k] = math.Log(v / tot)
			}
		}
	}
	return nil
}

func (c *tCat) Sample(state int, rng *rand.Rand, dst []float64) {
	u := rng.Float64()
	cum := 0.0
	k := c.nk - 1
	for i := 0; i < c.nk; i++ {
		cum += math.Exp(c.logits[state*c.nk+i])
		if u < cum {
			k = i
			break
		}
	}
	dst[0] = float64(k)
}

func (c *tCat) Clone() EmissionModel {
	q := &tCat{logits: make([]float64, len(c.logits)), ns: c.ns, nk: c.nk}
	copy(q.logits, c.logits)
	return q
}

func (c *tCat) DoF() int { return c.ns * (c.nk - 1) }

// testParams builds a well-separated semi-Markov parameter set.
func testParams(ns, nd int) *ModelParams {

	par := &ModelParams{
		Pi:     make([]float64, ns),
		A:      make([]float64, ns*ns),
		D:      make([]float64, ns*nd),
		NState: ns,
		MaxDur: nd,
		Kind:   Semi,
	}

	for j := 0; j < ns; j++ {
		par.Pi[j] = -math.Log(float64(ns))
		for k := 0; k < ns; k++ {
			if j == k {
				par.A[j*ns+k] = math.Inf(-1)
			} else {
				par.A[j*ns+k] = -math.Log(float64(ns - 1))
			}
		}
		var tot float64
		for d := 0; d < nd; d++ {
			tot += math.Pow(0.5, float64(d))
		}
		for d := 0; d < nd; d++ {
			par.D[j*nd+d] = float64(d)*math.Log(0.5) - math.Log(tot)
		}
	}

	return par
}
