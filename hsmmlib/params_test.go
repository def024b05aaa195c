package hsmmlib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

func TestSampleParamsInvariants(t *testing.T) {

	rng := rand.New(rand.NewSource(42))

	for _, ns := range []int{2, 4, 8} {
		for _, nd := range []int{2, 5, 10} {
			for _, kind := range []TransKind{Ergodic, LeftToRight, Semi} {

				par, err := sampleParams(ns, nd, kind, 1, rng)
				require.NoError(t, err)
				require.NoError(t, par.Validate())

				require.InDelta(t, 0, floats.LogSumExp(par.Pi), normTol)
				for j := 0; j < ns; j++ {
					require.InDelta(t, 0, floats.LogSumExp(par.A[j*ns:(j+1)*ns]), normTol)
					require.InDelta(t, 0, floats.LogSumExp(par.D[j*nd:(j+1)*nd]), normTol)
				}

				if kind == Semi {
					for j := 0; j < ns; j++ {
						require.True(t, math.IsInf(par.A[j*ns+j], -1),
							"semi diagonal must be zero probability")
					}
				}
				if kind == LeftToRight {
					for j := 0; j < ns; j++ {
						for k := 0; k < j; k++ {
							require.True(t, math.IsInf(par.A[j*ns+k], -1))
						}
					}
				}
			}
		}
	}
}

func TestValidateFailsFast(t *testing.T) {

	rng := rand.New(rand.NewSource(7))

	par, err := sampleParams(3, 4, Semi, 1, rng)
	require.NoError(t, err)

	bad := par.Clone()
	bad.Pi[0] += 0.5
	require.ErrorIs(t, bad.Validate(), ErrNumericalDegeneracy)

	bad = par.Clone()
	bad.A[0] = math.Log(0.1)
	require.ErrorIs(t, bad.Validate(), ErrNumericalDegeneracy)

	bad = par.Clone()
	bad.D[2] = math.NaN()
	require.ErrorIs(t, bad.Validate(), ErrNumericalDegeneracy)
}

func TestSampleParamsDeterministic(t *testing.T) {

	p1, err := sampleParams(4, 6, Semi, 1, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	p2, err := sampleParams(4, 6, Semi, 1, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	require.Equal(t, p1.Pi, p2.Pi)
	require.Equal(t, p1.A, p2.A)
	require.Equal(t, p1.D, p2.D)
}

func TestLogAddExp(t *testing.T) {

	require.InDelta(t, math.Log(0.7), logAddExp(math.Log(0.3), math.Log(0.4)), 1e-12)
	require.InDelta(t, math.Log(0.3), logAddExp(math.Log(0.3), math.Inf(-1)), 1e-12)
	require.True(t, math.IsInf(logAddExp(math.Inf(-1), math.Inf(-1)), -1))
}
