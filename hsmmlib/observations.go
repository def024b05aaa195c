package hsmmlib

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Observations holds a batch of variable-length sequences: the concatenated
// raw data, the per-sample emission log-likelihoods, and the segment
// boundaries.  The batch is built once per fit or score call; within an EM
// iteration only LogProbs is refreshed, after the emission parameters change.
type Observations struct {

	// Concatenated raw data, NObs x EventShape row-major.
	Data []float64

	// Per-sample per-state emission log-likelihoods, NObs x NState
	// row-major.
	LogProbs []float64

	// Length of each sequence.
	Lengths []int

	// Start offset (in samples) of each sequence within Data.
	Offsets []int

	NObs   int
	NSeq   int
	NState int

	eventShape int
}

// NewObservations validates raw data against the emission distribution and
// splits it by the given segment lengths.  A nil lengths treats the data as
// one sequence.  Violations of the emission support are collected and
// reported together, naming the offending values.
func NewObservations(em EmissionModel, data []float64, lengths []int) (*Observations, error) {

	p := em.EventShape()
	if p == 0 || len(data)%p != 0 {
		return nil, errors.Wrapf(ErrDomain, "data size %d is not a multiple of the event shape %d", len(data), p)
	}
	nobs := len(data) / p

	ok := em.SupportCheck(data, nobs)
	var verr error
	for t, v := range ok {
		if !v {
			verr = multierror.Append(verr,
				errors.Wrapf(ErrDomain, "sample %d outside emission support: %v", t, data[t*p:(t+1)*p]))
		}
	}
	if verr != nil {
		return nil, verr
	}

	if lengths == nil {
		lengths = []int{nobs}
	}
	var total int
	for _, n := range lengths {
		if n <= 0 {
			return nil, errors.Wrapf(ErrShapeMismatch, "nonpositive sequence length %d", n)
		}
		total += n
	}
	if total != nobs {
		return nil, errors.Wrapf(ErrShapeMismatch, "lengths sum to %d but %d samples were provided", total, nobs)
	}

	offsets := make([]int, len(lengths))
	pos := 0
	for i, n := range lengths {
		offsets[i] = pos
		pos += n
	}

	obs := &Observations{
		Data:       data,
		LogProbs:   make([]float64, nobs*em.NumStates()),
		Lengths:    lengths,
		Offsets:    offsets,
		NObs:       nobs,
		NSeq:       len(lengths),
		NState:     em.NumStates(),
		eventShape: p,
	}
	obs.RefreshLogProbs(em)

	return obs, nil
}

// RefreshLogProbs recomputes the emission log-likelihoods under the current
// emission parameters.  Called once per EM iteration.
func (obs *Observations) RefreshLogProbs(em EmissionModel) {
	em.LogProb(obs.Data, obs.NObs, obs.LogProbs)
}

// Seq returns the raw data of sequence i.
func (obs *Observations) Seq(i int) []float64 {
	o := obs.Offsets[i] * obs.eventShape
	return obs.Data[o : o+obs.Lengths[i]*obs.eventShape]
}

// SeqLogProbs returns the emission log-likelihoods of sequence i,
// T_i x NState row-major.
func (obs *Observations) SeqLogProbs(i int) []float64 {
	o := obs.Offsets[i] * obs.NState
	return obs.LogProbs[o : o+obs.Lengths[i]*obs.NState]
}

// ContextVars holds optional covariates for emission re-estimation: a
// (NContext+1) x NObs row-major matrix whose last row is an intercept of
// ones.  Time-invariant context is broadcast across all samples.
type ContextVars struct {
	NContext int
	X        []float64
	NObs     int
	TimeDep  bool
	Lengths  []int
	Offsets  []int
}

// NewContextVars builds contextual variables from a ncontext x ncols
// row-major matrix.  ncols must be 1 (time-invariant) or the sample count of
// the batch (time-dependent).
func NewContextVars(theta []float64, ncontext int, obs *Observations) (*ContextVars, error) {

	if ncontext <= 0 || len(theta)%ncontext != 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "context matrix size %d does not factor into %d rows", len(theta), ncontext)
	}
	ncols := len(theta) / ncontext
	if ncols != 1 && ncols != obs.NObs {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"context must have 1 column (time-invariant) or %d columns (time-dependent), got %d", obs.NObs, ncols)
	}
	timedep := ncols == obs.NObs

	x := make([]float64, (ncontext+1)*obs.NObs)
	for i := 0; i < ncontext; i++ {
		row := x[i*obs.NObs : (i+1)*obs.NObs]
		if timedep {
			copy(row, theta[i*ncols:(i+1)*ncols])
		} else {
			for t := range row {
				row[t] = theta[i]
			}
		}
	}
	for t := 0; t < obs.NObs; t++ {
		x[ncontext*obs.NObs+t] = 1
	}

	return &ContextVars{
		NContext: ncontext,
		X:        x,
		NObs:     obs.NObs,
		TimeDep:  timedep,
		Lengths:  obs.Lengths,
		Offsets:  obs.Offsets,
	}, nil
}
