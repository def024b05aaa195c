package hsmmlib

import (
	"github.com/pkg/errors"
)

// Error kinds surfaced by the library.  Callers can test for a kind with
// errors.Is; messages carry the offending shapes or values.
var (
	// ErrShapeMismatch indicates that slice sizes do not agree, e.g. the
	// segment lengths do not sum to the number of samples.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDomain indicates observed values outside the support of the
	// emission distribution, or a dimensionality mismatch against its
	// event shape.
	ErrDomain = errors.New("domain error")

	// ErrConfiguration indicates an unsupported transition-matrix kind,
	// decoding algorithm or information criterion.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotImplemented indicates a reserved but unimplemented code path,
	// such as Viterbi decoding for the duration model.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNumericalDegeneracy indicates model parameters that fail the
	// normalization invariants after an update.  This is a programming
	// error or a numerical breakdown, never a user error.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
)
