package qec

import "github.com/pkg/errors"

var (
	// ErrMalformedGeometry is returned when a detector coordinate table is empty
	// or cannot describe a lattice of the declared code family. It is fatal for a job.
	ErrMalformedGeometry = errors.New("malformed detector coordinates")
	// ErrIndexOutOfRange is returned when an unrolled or permuted detector lands
	// outside the dense frame. It aborts the shot, never clamps.
	ErrIndexOutOfRange = errors.New("layout index out of range")
	// ErrNotBijective is returned when the intra-round permutation for a distance
	// collides or leaves a position uncovered.
	ErrNotBijective = errors.New("round permutation is not a bijection")
	// ErrUnparseableToken is returned for matching tokens that carry the basis
	// prefix but no readable coordinate pair.
	ErrUnparseableToken = errors.New("unparseable matching token")
)
