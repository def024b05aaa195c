package hsmmlib

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// posteriors holds the expected sufficient statistics of one batch, as
// per-sequence ragged collections.  gamma is T_i x NState, xi is
// (T_i-1) x NState x NState and eta is (T_i-1) x NState x MaxDur, all
// row-major on the log scale.
type posteriors struct {
	gamma [][]float64
	xi    [][]float64
	eta   [][]float64
}

// computePosteriors runs the forward-backward recursions on every sequence
// and derives the transition (xi), duration (eta) and occupancy (gamma)
// posteriors.
func (par *ModelParams) computePosteriors(obs *Observations) *posteriors {

	post := &posteriors{
		gamma: make([][]float64, obs.NSeq),
		xi:    make([][]float64, obs.NSeq),
		eta:   make([][]float64, obs.NSeq),
	}

	for i := 0; i < obs.NSeq; i++ {
		lp := obs.SeqLogProbs(i)
		nt := obs.Lengths[i]

		alpha := par.forwardSeq(lp, nt)
		beta := par.backwardSeq(lp, nt)

		post.xi[i] = par.seqXi(lp, alpha, beta, nt)
		post.eta[i] = par.seqEta(lp, alpha, beta, nt)
		post.gamma[i] = par.seqGamma(alpha, post.xi[i], nt)
	}

	return post
}

// seqXi computes the transition posterior of one sequence, normalized
// jointly over the (from, to) axes at each time step.
func (par *ModelParams) seqXi(lp, alpha, beta []float64, nt int) []float64 {

	ns, nd := par.NState, par.MaxDur
	xi := make([]float64, (nt-1)*ns*ns)
	durBeta := make([]float64, ns)

	for t := 0; t < nt-1; t++ {
		bn := beta[(t+1)*ns*nd:]
		for k := 0; k < ns; k++ {
			m := math.Inf(-1)
			for d := 0; d < nd; d++ {
				m = logAddExp(m, par.D[k*nd+d]+bn[k*nd+d])
			}
			durBeta[k] = m + lp[(t+1)*ns+k]
		}

		xt := xi[t*ns*ns : (t+1)*ns*ns]
		for j := 0; j < ns; j++ {
			a0 := alpha[t*ns*nd+j*nd]
			for k := 0; k < ns; k++ {
				xt[j*ns+k] = par.A[j*ns+k] + a0 + durBeta[k]
			}
		}
		logNormalize(xt)
	}

	return xi
}

// seqEta computes the duration posterior of one sequence: the mass that
// just transitioned into a state, joined with the duration draw and the
// backward continuation, normalized over the duration axis.
func (par *ModelParams) seqEta(lp, alpha, beta []float64, nt int) []float64 {

	ns, nd := par.NState, par.MaxDur
	eta := make([]float64, (nt-1)*ns*nd)
	transSum := make([]float64, ns)
	wk := make([]float64, ns)

	for t := 0; t < nt-1; t++ {
		for j := 0; j < ns; j++ {
			for k := 0; k < ns; k++ {
				wk[k] = alpha[t*ns*nd+k*nd] + par.A[k*ns+j]
			}
			transSum[j] = floats.LogSumExp(wk)
		}

		bn := beta[(t+1)*ns*nd:]
		et := eta[t*ns*nd:]
		for j := 0; j < ns; j++ {
			row := et[j*nd : (j+1)*nd]
			for d := 0; d < nd; d++ {
				row[d] = bn[j*nd+d] + par.D[j*nd+d] + lp[t*ns+j] + transSum[j]
			}
			logNormalize(row)
		}
	}

	return eta
}

// seqGamma computes the occupancy posterior of one sequence by conserving
// probability flow backward from the terminal boundary: the occupancy at t
// is the occupancy at t+1 corrected by the net transition flow through t.
// The correction runs in the probability domain; small negative excursions
// from roundoff are floored at zero before returning to logs.
func (par *ModelParams) seqGamma(alpha, xi []float64, nt int) []float64 {

	ns, nd := par.NState, par.MaxDur
	gamma := make([]float64, nt*ns)

	last := gamma[(nt-1)*ns:]
	for j := 0; j < ns; j++ {
		last[j] = floats.LogSumExp(alpha[(nt-1)*ns*nd+j*nd : (nt-1)*ns*nd+(j+1)*nd])
	}
	logNormalize(last)
	for j := 0; j < ns; j++ {
		last[j] = math.Exp(last[j])
	}

	for t := nt - 2; t >= 0; t-- {
		gt := gamma[t*ns : (t+1)*ns]
		gn := gamma[(t+1)*ns:]
		xt := xi[t*ns*ns:]
		for j := 0; j < ns; j++ {
			flow := 0.0
			for k := 0; k < ns; k++ {
				flow += math.Exp(xt[j*ns+k]) - math.Exp(xt[k*ns+j])
			}
			g := gn[j] + flow
			if g < 0 {
				g = 0
			}
			gt[j] = g
		}
	}

	for t := 0; t < nt; t++ {
		for j := 0; j < ns; j++ {
			gamma[t*ns+j] = math.Log(gamma[t*ns+j])
		}
	}

	return gamma
}

// estimateParams performs one M-step: pi from the first-timestep occupancy,
// A from the summed transition posterior, D from the summed duration
// posterior, and the emission parameters through the plugin.  The returned
// parameters are a fresh value; the caller swaps them in wholesale.
func (par *ModelParams) estimateParams(obs *Observations, em EmissionModel, ctx *ContextVars) (*ModelParams, error) {

	ns, nd := par.NState, par.MaxDur
	post := par.computePosteriors(obs)

	next := &ModelParams{
		Pi:     make([]float64, ns),
		A:      make([]float64, ns*ns),
		D:      make([]float64, ns*nd),
		NState: ns,
		MaxDur: nd,
		Kind:   par.Kind,
	}

	for j := range next.Pi {
		next.Pi[j] = math.Inf(-1)
	}
	for i := range next.A {
		next.A[i] = math.Inf(-1)
	}
	for i := range next.D {
		next.D[i] = math.Inf(-1)
	}

	for i := 0; i < obs.NSeq; i++ {
		for j := 0; j < ns; j++ {
			next.Pi[j] = logAddExp(next.Pi[j], post.gamma[i][j])
		}
		for t := 0; t < obs.Lengths[i]-1; t++ {
			xt := post.xi[i][t*ns*ns:]
			et := post.eta[i][t*ns*nd:]
			for q := 0; q < ns*ns; q++ {
				next.A[q] = logAddExp(next.A[q], xt[q])
			}
			for q := 0; q < ns*nd; q++ {
				next.D[q] = logAddExp(next.D[q], et[q])
			}
		}
	}

	logNormalize(next.Pi)
	for j := 0; j < ns; j++ {
		logNormalize(next.A[j*ns : (j+1)*ns])
		logNormalize(next.D[j*nd : (j+1)*nd])
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	resp := make([]float64, ns*obs.NObs)
	for i := 0; i < obs.NSeq; i++ {
		off := obs.Offsets[i]
		for t := 0; t < obs.Lengths[i]; t++ {
			for j := 0; j < ns; j++ {
				resp[j*obs.NObs+off+t] = math.Exp(post.gamma[i][t*ns+j])
			}
		}
	}
	if err := em.UpdateParams(obs.Data, obs.NObs, resp, ctx); err != nil {
		return nil, err
	}

	return next, nil
}
