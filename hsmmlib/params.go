package hsmmlib

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
)

// TransKind indicates the structure imposed on the transition matrix.
type TransKind uint8

// Ergodic, LeftToRight, Semi are the available transition-matrix kinds.
// The duration model always uses Semi, which forbids self-transitions:
// staying in a state is expressed through the duration distribution.
const (
	Ergodic TransKind = iota
	LeftToRight
	Semi
)

func (k TransKind) String() string {
	switch k {
	case Ergodic:
		return "ergodic"
	case LeftToRight:
		return "left-to-right"
	case Semi:
		return "semi"
	default:
		return "unknown"
	}
}

// Tolerance for the row-normalization invariants.
const normTol = 1e-6

// ModelParams holds the structural parameters of the model, all on the log
// scale.  The value is immutable by convention: each EM iteration builds a
// fresh ModelParams and swaps it in wholesale, so the invariants can be
// checked at a single point.
type ModelParams struct {
	// Log initial state probabilities, length NState.
	Pi []float64

	// Log transition probabilities, NState x NState row-major.  For the
	// Semi kind the diagonal is -Inf.
	A []float64

	// Log sojourn-duration probabilities, NState x MaxDur row-major.
	D []float64

	NState int
	MaxDur int
	Kind   TransKind
}

// sampleParams draws fresh parameters from row-wise Dirichlet(alpha)
// distributions, honoring the transition-matrix kind.
func sampleParams(nstate, maxdur int, kind TransKind, alpha float64, rng *rand.Rand) (*ModelParams, error) {

	par := &ModelParams{
		Pi:     sampleLogProbs(nstate, alpha, rng),
		D:      make([]float64, nstate*maxdur),
		NState: nstate,
		MaxDur: maxdur,
		Kind:   kind,
	}

	for j := 0; j < nstate; j++ {
		copy(par.D[j*maxdur:(j+1)*maxdur], sampleLogProbs(maxdur, alpha, rng))
	}

	a, err := sampleTrans(nstate, kind, alpha, rng)
	if err != nil {
		return nil, err
	}
	par.A = a

	return par, par.Validate()
}

// sampleLogProbs draws one probability vector from Dirichlet(alpha) and
// returns it on the log scale.  An alpha of 1 samples uniformly from the
// simplex.
func sampleLogProbs(n int, alpha float64, rng *rand.Rand) []float64 {

	av := make([]float64, n)
	for i := range av {
		av[i] = alpha
	}

	p := distmv.NewDirichlet(av, rng).Rand(nil)
	for i := range p {
		p[i] = math.Log(p[i])
	}

	return p
}

// sampleTrans draws a transition matrix of the given kind on the log scale.
func sampleTrans(nstate int, kind TransKind, alpha float64, rng *rand.Rand) ([]float64, error) {

	a := make([]float64, nstate*nstate)
	for i := 0; i < nstate; i++ {
		row := a[i*nstate : (i+1)*nstate]
		copy(row, sampleLogProbs(nstate, alpha, rng))

		switch kind {
		case Ergodic:
		case Semi:
			row[i] = math.Inf(-1)
			logNormalize(row)
		case LeftToRight:
			for j := 0; j < i; j++ {
				row[j] = math.Inf(-1)
			}
			logNormalize(row)
		default:
			return nil, errors.Wrapf(ErrConfiguration, "unsupported transition matrix kind %d", kind)
		}
	}

	return a, nil
}

// Validate checks the normalization invariants: Pi, and each row of A and D,
// must sum to one, and for the Semi kind the diagonal of A must be exactly
// zero probability.  A violation is a programming error, reported as
// ErrNumericalDegeneracy.
func (par *ModelParams) Validate() error {

	if v := floats.LogSumExp(par.Pi); math.Abs(v) > normTol || math.IsNaN(v) {
		return errors.Wrapf(ErrNumericalDegeneracy, "initial distribution sums to exp(%v)", v)
	}

	for j := 0; j < par.NState; j++ {
		row := par.A[j*par.NState : (j+1)*par.NState]
		if v := floats.LogSumExp(row); math.Abs(v) > normTol || math.IsNaN(v) {
			return errors.Wrapf(ErrNumericalDegeneracy, "transition row %d sums to exp(%v)", j, v)
		}
		if par.Kind == Semi && !math.IsInf(row[j], -1) {
			return errors.Wrapf(ErrNumericalDegeneracy, "semi transition matrix has nonzero diagonal at state %d", j)
		}
	}

	for j := 0; j < par.NState; j++ {
		row := par.D[j*par.MaxDur : (j+1)*par.MaxDur]
		if v := floats.LogSumExp(row); math.Abs(v) > normTol || math.IsNaN(v) {
			return errors.Wrapf(ErrNumericalDegeneracy, "duration row %d sums to exp(%v)", j, v)
		}
	}

	return nil
}

// Clone returns a deep copy of the parameters.
func (par *ModelParams) Clone() *ModelParams {

	q := &ModelParams{
		Pi:     make([]float64, len(par.Pi)),
		A:      make([]float64, len(par.A)),
		D:      make([]float64, len(par.D)),
		NState: par.NState,
		MaxDur: par.MaxDur,
		Kind:   par.Kind,
	}
	copy(q.Pi, par.Pi)
	copy(q.A, par.A)
	copy(q.D, par.D)

	return q
}

// logNormalize shifts a log-probability vector so that it sums to one.
func logNormalize(x []float64) {
	floats.AddConst(-floats.LogSumExp(x), x)
}

// logAddExp returns log(exp(a) + exp(b)) without leaving the log scale.
func logAddExp(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}

func argmax(x []float64) int {
	j := 0
	v := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > v {
			v = x[i]
			j = i
		}
	}

	return j
}

// makeFloatArray makes a collection of r slices of length c, packed
// contiguously.
func makeFloatArray(r, c int) [][]float64 {

	bka := make([]float64, r*c)
	x := make([][]float64, r)
	ii := 0
	for j := 0; j < r; j++ {
		x[j] = bka[ii : ii+c]
		ii += c
	}

	return x
}
