package hsmmlib

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// The forward and backward recursions run over an augmented lattice of
// (state, remaining duration) pairs.  Duration slot 0 means the state is
// about to transition; slot d > 0 means the chain is committed to d more
// steps in the state.  Everything is on the log scale: products become sums
// and sums become logsumexp.

// forwardSeq computes the forward probabilities for one sequence of length
// nt using its emission log-likelihoods lp (nt x NState row-major).  The
// returned lattice is nt x NState x MaxDur row-major.
func (par *ModelParams) forwardSeq(lp []float64, nt int) []float64 {

	ns, nd := par.NState, par.MaxDur
	alpha := make([]float64, nt*ns*nd)
	wk := make([]float64, ns)
	transSum := make([]float64, ns)

	// Entering a state re-draws the full duration distribution.
	for j := 0; j < ns; j++ {
		a0 := alpha[j*nd : (j+1)*nd]
		for d := 0; d < nd; d++ {
			a0[d] = par.D[j*nd+d] + par.Pi[j] + lp[j]
		}
	}

	for t := 1; t < nt; t++ {
		at := alpha[t*ns*nd:]
		ap := alpha[(t-1)*ns*nd:]

		// Mass that just transitioned into j and re-entered the
		// duration distribution.
		for j := 0; j < ns; j++ {
			for k := 0; k < ns; k++ {
				wk[k] = ap[k*nd] + par.A[k*ns+j]
			}
			transSum[j] = floats.LogSumExp(wk) + lp[t*ns+j]
		}

		for j := 0; j < ns; j++ {
			row := at[j*nd : (j+1)*nd]
			row[nd-1] = transSum[j] + par.D[j*nd+nd-1]
			for d := 0; d < nd-1; d++ {
				// Survive the prior commitment, or enter fresh
				// with exactly d steps remaining.
				row[d] = logAddExp(ap[j*nd+d+1]+lp[t*ns+j], transSum[j]+par.D[j*nd+d])
			}
		}
	}

	return alpha
}

// backwardSeq computes the backward probabilities for one sequence, on the
// same lattice as forwardSeq.  The terminal slice is log(1) everywhere.
func (par *ModelParams) backwardSeq(lp []float64, nt int) []float64 {

	ns, nd := par.NState, par.MaxDur
	beta := make([]float64, nt*ns*nd)
	wk := make([]float64, ns)
	durSum := make([]float64, ns)

	for t := nt - 2; t >= 0; t-- {
		bt := beta[t*ns*nd:]
		bn := beta[(t+1)*ns*nd:]

		for k := 0; k < ns; k++ {
			row := bn[k*nd : (k+1)*nd]
			m := math.Inf(-1)
			for d := 0; d < nd; d++ {
				m = logAddExp(m, row[d]+par.D[k*nd+d])
			}
			durSum[k] = m
		}

		for j := 0; j < ns; j++ {
			for k := 0; k < ns; k++ {
				wk[k] = par.A[j*ns+k] + lp[(t+1)*ns+k] + durSum[k]
			}
			bt[j*nd] = floats.LogSumExp(wk)
			for d := 1; d < nd; d++ {
				bt[j*nd+d] = bn[j*nd+d-1] + lp[(t+1)*ns+j]
			}
		}
	}

	return beta
}

// seqScore returns the log-likelihood of one sequence: the logsumexp of the
// forward lattice at t=0 over both the state and duration axes.
func (par *ModelParams) seqScore(alpha []float64) float64 {
	return floats.LogSumExp(alpha[:par.NState*par.MaxDur])
}

// scores computes the per-sequence log-likelihoods for a batch under the
// current parameters.
func (par *ModelParams) scores(obs *Observations) []float64 {

	llf := make([]float64, obs.NSeq)
	for i := 0; i < obs.NSeq; i++ {
		alpha := par.forwardSeq(obs.SeqLogProbs(i), obs.Lengths[i])
		llf[i] = par.seqScore(alpha)
	}

	return llf
}
