package hsmmlib

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// ICKind selects an information criterion.
type ICKind uint8

// AIC, BIC, HQC are the available information criteria.
const (
	AIC ICKind = iota
	BIC
	HQC
)

// FitConfig holds the hyper-parameters of one EM fit.
type FitConfig struct {
	// Convergence threshold on the log-likelihood delta.
	Tol float64

	// Maximum number of EM iterations per restart.
	MaxIter int

	// Number of random restarts.
	NInit int

	// Number of trailing iterations whose deltas must all fall below Tol
	// before a restart is declared converged.
	PostConvIter int

	// Run every iteration even after convergence is declared.
	IgnoreConv bool

	// Re-draw the emission parameters from the data before fitting.
	SampleEmissions bool
}

// DefaultFitConfig mirrors the default fitting behavior: a single restart
// with a loose tolerance.
func DefaultFitConfig() FitConfig {
	return FitConfig{Tol: 0.01, MaxIter: 15, NInit: 1, PostConvIter: 1}
}

// HSMM is a hidden semi-Markov model: a hidden Markov chain whose sojourn
// time in each state follows an explicit duration distribution of bounded
// length, rather than the implicit geometric one.  The emission distribution
// is pluggable; the duration and transition core is agnostic of its kind.
//
// The model owns its parameter set exclusively.  Fitting replaces the
// parameters wholesale at each iteration boundary; no partial mutation is
// ever visible.
type HSMM struct {
	NState int
	MaxDur int
	Kind   TransKind

	// Dirichlet concentration used when sampling parameters.
	Alpha float64

	// Convergence record of the most recent fit.
	Conv *ConvMonitor

	par    *ModelParams
	em     EmissionModel
	seed   *SeedGen
	logger *zap.SugaredLogger
}

// Option configures a model at construction.
type Option func(*HSMM)

// WithSeed fixes the seed of the model's random source.
func WithSeed(seed uint64) Option {
	return func(m *HSMM) { m.seed = NewSeedGen(seed) }
}

// WithLogger provides a logger for fit progress.  Without one the model is
// silent.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *HSMM) { m.logger = logger }
}

// New returns an HSMM with parameters sampled from Dirichlet(alpha) rows and
// emission parameters sampled by the plugin.  The duration model requires
// the Semi transition kind; any other kind is a configuration error here.
func New(nstate, maxdur int, kind TransKind, alpha float64, em EmissionModel, opts ...Option) (*HSMM, error) {

	if kind != Semi {
		return nil, errors.Wrapf(ErrConfiguration, "duration model requires the semi transition kind, got %v", kind)
	}
	if em.NumStates() != nstate {
		return nil, errors.Wrapf(ErrShapeMismatch, "emission model covers %d states, model has %d", em.NumStates(), nstate)
	}

	m := &HSMM{
		NState: nstate,
		MaxDur: maxdur,
		Kind:   kind,
		Alpha:  alpha,
		em:     em,
		seed:   NewSeedGen(0),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}

	par, err := sampleParams(nstate, maxdur, kind, alpha, m.seed.Rand())
	if err != nil {
		return nil, err
	}
	m.par = par
	em.SampleParams(nil, 0, m.seed.Rand())

	return m, nil
}

// Params returns a copy of the current model parameters.
func (m *HSMM) Params() *ModelParams {
	return m.par.Clone()
}

// SetParams replaces the model parameters after validating them.
func (m *HSMM) SetParams(par *ModelParams) error {
	if par.NState != m.NState || par.MaxDur != m.MaxDur {
		return errors.Wrapf(ErrShapeMismatch, "parameters sized %dx%d, model is %dx%d",
			par.NState, par.MaxDur, m.NState, m.MaxDur)
	}
	if err := par.Validate(); err != nil {
		return err
	}
	m.par = par.Clone()
	return nil
}

// Emission returns the emission plugin.
func (m *HSMM) Emission() EmissionModel {
	return m.em
}

// Reseed resets the model's random source.
func (m *HSMM) Reseed(seed uint64) {
	m.seed.Reseed(seed)
}

// Fit estimates the model parameters from one or more concatenated
// sequences using the EM (Baum-Welch) algorithm.  A nil lengths treats data
// as a single sequence.  theta, when non-nil, provides contextual variables
// with ncontext rows for emission re-estimation.
//
// Each restart samples fresh parameters, scores them as the iteration-0
// baseline, then alternates posterior computation and re-estimation until
// the convergence window closes or MaxIter is reached.  Running past
// MaxIter without converging is a normal terminal state, not an error.  The
// parameters retained at the end are those of the best-scoring restart.
func (m *HSMM) Fit(data []float64, lengths []int, theta []float64, ncontext int, cfg FitConfig) error {

	obs, err := NewObservations(m.em, data, lengths)
	if err != nil {
		return err
	}

	var ctx *ContextVars
	if theta != nil {
		if ctx, err = NewContextVars(theta, ncontext, obs); err != nil {
			return err
		}
	}

	if cfg.SampleEmissions {
		m.em.SampleParams(obs.Data, obs.NObs, m.seed.Rand())
		obs.RefreshLogProbs(m.em)
	}

	m.Conv = NewConvMonitor(cfg.Tol, cfg.MaxIter, cfg.NInit, cfg.PostConvIter, m.logger)

	bestScore := math.Inf(-1)
	var bestPar *ModelParams
	var bestEm EmissionModel

	for rank := 0; rank < cfg.NInit; rank++ {
		if rank > 0 {
			par, err := sampleParams(m.NState, m.MaxDur, m.Kind, m.Alpha, m.seed.Rand())
			if err != nil {
				return err
			}
			m.par = par
			m.em.SampleParams(obs.Data, obs.NObs, m.seed.Rand())
			obs.RefreshLogProbs(m.em)
		}

		score := floats.Sum(m.par.scores(obs))
		m.Conv.PushPull(score, 0, rank)

		for iter := 1; iter <= cfg.MaxIter; iter++ {
			next, err := m.par.estimateParams(obs, m.em, ctx)
			if err != nil {
				return err
			}
			m.par = next
			obs.RefreshLogProbs(m.em)

			score = floats.Sum(m.par.scores(obs))
			if m.Conv.PushPull(score, iter, rank) && !cfg.IgnoreConv {
				break
			}
		}

		if score > bestScore {
			bestScore = score
			bestPar = m.par.Clone()
			bestEm = m.em.Clone()
		}
	}

	// Retain the best-scoring restart, not the last one that ran.
	if bestPar != nil {
		m.par = bestPar
		m.em = bestEm
	}

	return nil
}

// Score returns the log-likelihood of the given sequences under the current
// parameters: one value per sequence when bySample is true, otherwise their
// sum as a single element.
func (m *HSMM) Score(data []float64, lengths []int, bySample bool) ([]float64, error) {

	obs, err := NewObservations(m.em, data, lengths)
	if err != nil {
		return nil, err
	}

	llf := m.par.scores(obs)
	if !bySample {
		return []float64{floats.Sum(llf)}, nil
	}

	return llf, nil
}

// Predict decodes the most likely hidden-state path of each sequence.  The
// "map" algorithm takes the per-timestep arg-max of the occupancy posterior.
// The "viterbi" algorithm is reserved for the duration model but not
// implemented; requesting it fails rather than silently falling back.
func (m *HSMM) Predict(data []float64, algorithm string, lengths []int) ([][]int, error) {

	switch algorithm {
	case "map":
	case "viterbi":
		return nil, errors.Wrap(ErrNotImplemented, "viterbi decoding for the duration model")
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown decoding algorithm %q", algorithm)
	}

	obs, err := NewObservations(m.em, data, lengths)
	if err != nil {
		return nil, err
	}

	post := m.par.computePosteriors(obs)
	paths := make([][]int, obs.NSeq)
	for i := 0; i < obs.NSeq; i++ {
		nt := obs.Lengths[i]
		path := make([]int, nt)
		for t := 0; t < nt; t++ {
			path[t] = argmax(post.gamma[i][t*m.NState : (t+1)*m.NState])
		}
		paths[i] = path
	}

	return paths, nil
}

// DoF returns the number of free parameters: the initial distribution, the
// transition rows net of their structural zeros, the duration rows, and the
// emission parameters.
func (m *HSMM) DoF() int {

	df := m.NState - 1
	switch m.Kind {
	case Semi:
		df += m.NState * (m.NState - 2)
	default:
		df += m.NState * (m.NState - 1)
	}
	df += m.NState * (m.MaxDur - 1)
	df += m.em.DoF()

	return df
}

// IC returns the requested information criterion for the given sequences:
// a penalized log-likelihood trading fit against the model's degrees of
// freedom.
func (m *HSMM) IC(kind ICKind, data []float64, lengths []int) (float64, error) {

	llf, err := m.Score(data, lengths, false)
	if err != nil {
		return 0, err
	}

	l := llf[0]
	k := float64(m.DoF())
	n := float64(len(data) / m.em.EventShape())

	switch kind {
	case AIC:
		return -2*l + 2*k, nil
	case BIC:
		return -2*l + k*math.Log(n), nil
	case HQC:
		return -2*l + 2*k*math.Log(math.Log(n)), nil
	default:
		return 0, errors.Wrapf(ErrConfiguration, "unknown information criterion %d", kind)
	}
}

// Sample draws a state path of the given length from the chain, with
// sojourn times drawn from the duration distribution, and one observation
// per step from the emission plugin.  Returns the states and the
// concatenated observations.
func (m *HSMM) Sample(n int) ([]int, []float64) {

	rng := m.seed.Rand()
	p := m.em.EventShape()
	states := make([]int, n)
	data := make([]float64, n*p)

	st := drawLogits(m.par.Pi, rng)
	remain := drawLogits(m.par.D[st*m.MaxDur:(st+1)*m.MaxDur], rng)

	for t := 0; t < n; t++ {
		states[t] = st
		m.em.Sample(st, rng, data[t*p:(t+1)*p])

		if remain > 0 {
			remain--
			continue
		}
		st = drawLogits(m.par.A[st*m.NState:(st+1)*m.NState], rng)
		remain = drawLogits(m.par.D[st*m.MaxDur:(st+1)*m.MaxDur], rng)
	}

	return states, data
}

// drawLogits samples an index from a log-probability vector.
func drawLogits(logp []float64, rng *rand.Rand) int {

	u := rng.Float64()
	cum := 0.0
	for i, lp := range logp {
		cum += math.Exp(lp)
		if u < cum {
			return i
		}
	}

	return len(logp) - 1
}
