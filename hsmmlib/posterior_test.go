package hsmmlib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func testBatch(t *testing.T, ns, nk int, data []float64, lengths []int) *Observations {
	t.Helper()
	obs, err := NewObservations(newTCat(ns, nk), data, lengths)
	require.NoError(t, err)
	return obs
}

func TestForwardInitialSlice(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{0, 1, 2, 3, 1, 2}, nil)

	lp := obs.SeqLogProbs(0)
	alpha := par.forwardSeq(lp, obs.Lengths[0])

	for j := 0; j < ns; j++ {
		for d := 0; d < nd; d++ {
			require.InDelta(t, par.D[j*nd+d]+par.Pi[j]+lp[j], alpha[j*nd+d], 1e-12)
		}
	}
}

func TestBackwardTerminalSlice(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{0, 1, 2, 3, 1}, nil)

	nt := obs.Lengths[0]
	beta := par.backwardSeq(obs.SeqLogProbs(0), nt)

	for q := 0; q < ns*nd; q++ {
		require.Zero(t, beta[(nt-1)*ns*nd+q])
	}
}

func TestSeqScoreSingleStep(t *testing.T) {

	// With one observation the score has a closed form: logsumexp over
	// states and durations of the initial lattice slice.
	ns, nd := 2, 3
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{2}, nil)

	lp := obs.SeqLogProbs(0)
	alpha := par.forwardSeq(lp, 1)

	wk := make([]float64, 0, ns*nd)
	for j := 0; j < ns; j++ {
		for d := 0; d < nd; d++ {
			wk = append(wk, par.D[j*nd+d]+par.Pi[j]+lp[j])
		}
	}
	require.InDelta(t, floats.LogSumExp(wk), par.seqScore(alpha), 1e-12)
}

func TestScoresPerSequence(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{0, 1, 2, 3, 0, 1, 2}, []int{4, 3})

	llf := par.scores(obs)
	require.Len(t, llf, 2)
	for _, l := range llf {
		require.False(t, math.IsNaN(l))
		require.True(t, l < 0)
	}
}

func TestXiNormalizedJointly(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{0, 1, 2, 3, 1, 0}, nil)

	nt := obs.Lengths[0]
	lp := obs.SeqLogProbs(0)
	alpha := par.forwardSeq(lp, nt)
	beta := par.backwardSeq(lp, nt)
	xi := par.seqXi(lp, alpha, beta, nt)

	require.Len(t, xi, (nt-1)*ns*ns)
	for t0 := 0; t0 < nt-1; t0++ {
		xt := xi[t0*ns*ns : (t0+1)*ns*ns]
		require.InDelta(t, 0, floats.LogSumExp(xt), 1e-10)

		// No self-transitions in a semi-Markov chain.
		for j := 0; j < ns; j++ {
			require.True(t, math.IsInf(xt[j*ns+j], -1))
		}
	}
}

func TestEtaNormalizedPerState(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{0, 1, 2, 3, 1, 0}, nil)

	nt := obs.Lengths[0]
	lp := obs.SeqLogProbs(0)
	alpha := par.forwardSeq(lp, nt)
	beta := par.backwardSeq(lp, nt)
	eta := par.seqEta(lp, alpha, beta, nt)

	require.Len(t, eta, (nt-1)*ns*nd)
	for t0 := 0; t0 < nt-1; t0++ {
		for j := 0; j < ns; j++ {
			row := eta[t0*ns*nd+j*nd : t0*ns*nd+(j+1)*nd]
			require.InDelta(t, 0, floats.LogSumExp(row), 1e-10)
		}
	}
}

func TestGammaTerminalRow(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	obs := testBatch(t, ns, 4, []float64{0, 1, 2, 3, 1, 0}, nil)

	nt := obs.Lengths[0]
	lp := obs.SeqLogProbs(0)
	alpha := par.forwardSeq(lp, nt)
	beta := par.backwardSeq(lp, nt)
	xi := par.seqXi(lp, alpha, beta, nt)
	gamma := par.seqGamma(alpha, xi, nt)

	require.Len(t, gamma, nt*ns)

	var tot float64
	for j := 0; j < ns; j++ {
		tot += math.Exp(gamma[(nt-1)*ns+j])
	}
	require.InDelta(t, 1, tot, 1e-10)

	for _, g := range gamma {
		require.False(t, math.IsNaN(g))
	}
}

func TestEstimateParamsProducesValidModel(t *testing.T) {

	ns, nd := 3, 4
	par := testParams(ns, nd)
	em := newTCat(ns, 4)
	obs, err := NewObservations(em, []float64{0, 1, 2, 3, 1, 0, 2, 3, 0, 1}, []int{6, 4})
	require.NoError(t, err)

	next, err := par.estimateParams(obs, em, nil)
	require.NoError(t, err)
	require.NoError(t, next.Validate())
	require.Equal(t, Semi, next.Kind)

	for j := 0; j < ns; j++ {
		require.True(t, math.IsInf(next.A[j*ns+j], -1))
	}
}
