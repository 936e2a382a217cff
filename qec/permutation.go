package qec

import (
	"github.com/pkg/errors"
)

// RoundPermutation reorders one round of the dense frame from the
// simulator's raster order into the traversal order of the dense backend.
//
// For distance d with columnLength = (d-1)/2, a round is a block of
// period = (d+1)*columnLength positions and source position j maps to
//
//	innerPeriod = 1 + columnLength
//	dest(j)     = starter[j / innerPeriod] + (j % innerPeriod) * (d-1)
//
// where starter has length d-1 and is built as
//
//	starter[2i]   = d - 2 - i
//	starter[2i+1] = columnLength - 1 - i      for i in [0, columnLength)
//
// Both directions are precomputed as lookup tables.
type RoundPermutation struct {
	Distance int
	Period   int
	fwd      []int // j -> dest(j)
	inv      []int // dest(j) -> j
}

// NewRoundPermutation builds and validates the permutation for distance d.
// It fails with ErrNotBijective when the tables collide or leave holes.
func NewRoundPermutation(d int) (*RoundPermutation, error) {
	if d < 3 {
		return nil, errors.Wrapf(ErrNotBijective, "distance %d too small", d)
	}
	colLen := (d - 1) / 2
	period := (d + 1) * colLen
	starter := make([]int, d-1)
	for i := 0; i < colLen; i++ {
		starter[2*i] = d - 2 - i
		starter[2*i+1] = colLen - 1 - i
	}
	innerPeriod := 1 + colLen

	p := &RoundPermutation{
		Distance: d,
		Period:   period,
		fwd:      make([]int, period),
		inv:      make([]int, period),
	}
	seen := make([]bool, period)
	for j := 0; j < period; j++ {
		k := j / innerPeriod
		if k >= len(starter) {
			return nil, errors.Wrapf(ErrNotBijective, "d=%d: source %d has no starter row", d, j)
		}
		dst := starter[k] + (j%innerPeriod)*(d-1)
		if dst < 0 || dst >= period {
			return nil, errors.Wrapf(ErrNotBijective, "d=%d: dest(%d)=%d outside [0,%d)", d, j, dst, period)
		}
		if seen[dst] {
			return nil, errors.Wrapf(ErrNotBijective, "d=%d: dest(%d)=%d collides", d, j, dst)
		}
		seen[dst] = true
		p.fwd[j] = dst
		p.inv[dst] = j
	}
	return p, nil
}

// Dest returns the destination of source position j within a round.
func (p *RoundPermutation) Dest(j int) int { return p.fwd[j] }

// Source returns the source position that lands on dst.
func (p *RoundPermutation) Source(dst int) int { return p.inv[dst] }

// Apply permutes every round block of frame into a fresh slice.
func (p *RoundPermutation) Apply(frame []bool) ([]bool, error) {
	return p.remap(frame, p.fwd)
}

// Invert undoes Apply.
func (p *RoundPermutation) Invert(frame []bool) ([]bool, error) {
	return p.remap(frame, p.inv)
}

func (p *RoundPermutation) remap(frame []bool, table []int) ([]bool, error) {
	if len(frame)%p.Period != 0 {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "frame length %d is not a multiple of period %d", len(frame), p.Period)
	}
	out := make([]bool, len(frame))
	for base := 0; base < len(frame); base += p.Period {
		for j := 0; j < p.Period; j++ {
			if frame[base+j] {
				out[base+table[j]] = true
			}
		}
	}
	return out, nil
}
