package emissions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/Aretrius/HMM/hsmmlib"
)

func TestPoissonLogProb(t *testing.T) {

	p := NewPoisson(2, 1)
	p.Lambda = []float64{2, 5}

	dst := make([]float64, 2)
	p.LogProb([]float64{3}, 1, dst)

	// log pmf(k; lam) = k log lam - lam - log k!
	require.InDelta(t, 3*math.Log(2)-2-math.Log(6), dst[0], 1e-10)
	require.InDelta(t, 3*math.Log(5)-5-math.Log(6), dst[1], 1e-10)
}

func TestPoissonSupportCheck(t *testing.T) {

	p := NewPoisson(2, 1)
	ok := p.SupportCheck([]float64{0, 3, -1, 2.5, math.Inf(1)}, 5)
	require.Equal(t, []bool{true, true, false, false, false}, ok)
}

func TestPoissonUpdateParams(t *testing.T) {

	p := NewPoisson(2, 1)
	data := []float64{0, 2, 4, 10}

	resp := []float64{
		1, 1, 1, 0,
		0, 0, 0, 1,
	}
	require.NoError(t, p.UpdateParams(data, 4, resp, nil))

	require.InDelta(t, 2, p.Lambda[0], 1e-12)
	require.InDelta(t, 10, p.Lambda[1], 1e-12)
}

func TestPoissonUpdateParamsFloor(t *testing.T) {

	p := NewPoisson(1, 1)
	require.NoError(t, p.UpdateParams([]float64{0, 0, 0}, 3, []float64{1, 1, 1}, nil))
	require.Equal(t, minPoissonMean, p.Lambda[0])
}

func TestPoissonSampleParamsDefault(t *testing.T) {

	p := NewPoisson(3, 2)
	p.SampleParams(nil, 0, rand.New(rand.NewSource(1)))

	for j := 0; j < 3; j++ {
		for q := 0; q < 2; q++ {
			require.Equal(t, float64(j+1), p.Lambda[j*2+q])
		}
	}
}

func TestPoissonSampleParamsFromData(t *testing.T) {

	p := NewPoisson(2, 1)
	p.SampleParams([]float64{2, 4, 6}, 3, rand.New(rand.NewSource(1)))

	// Rates are jittered multiples of the marginal mean, within [0.5m, 1.5m].
	for j := 0; j < 2; j++ {
		require.GreaterOrEqual(t, p.Lambda[j], 2.0)
		require.LessOrEqual(t, p.Lambda[j], 6.0)
	}
}

func TestPoissonContextNotImplemented(t *testing.T) {

	p := NewPoisson(1, 1)
	err := p.UpdateParams([]float64{0}, 1, []float64{1}, &hsmmlib.ContextVars{})
	require.ErrorIs(t, err, hsmmlib.ErrNotImplemented)
}

func TestPoissonClone(t *testing.T) {

	p := NewPoisson(2, 1)
	p.Lambda = []float64{1, 2}

	q := p.Clone().(*Poisson)
	require.Equal(t, p.Lambda, q.Lambda)

	q.Lambda[0] = 9
	require.Equal(t, 1.0, p.Lambda[0])
}

func TestPoissonDoF(t *testing.T) {
	require.Equal(t, 6, NewPoisson(3, 2).DoF())
}
