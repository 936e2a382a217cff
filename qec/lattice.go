package qec

import (
	"github.com/pkg/errors"
)

// Lattice bundles the per-job read-only tables: geometry, detector roles
// and, for surface codes, the round permutation. It is built once and
// shared by all shot pipelines without synchronization.
type Lattice struct {
	Geometry Geometry
	Coords   []Coordinate
	Roles    []DetectorRole

	perm    *RoundPermutation
	permErr error
}

// NewLattice infers the geometry and classifies every detector.
// A malformed coordinate table is fatal for the job.
func NewLattice(family Family, coords []Coordinate) (*Lattice, error) {
	g, err := Infer(family, coords)
	if err != nil {
		return nil, errors.Wrap(err, "infer geometry")
	}
	l := &Lattice{
		Geometry: g,
		Coords:   coords,
		Roles:    Classify(family, coords),
	}
	if family.Surface() {
		l.perm, l.permErr = NewRoundPermutation(g.Distance)
	} else {
		l.permErr = errors.Errorf("%s codes have no dense round layout", family)
	}
	return l, nil
}

// NumDetectors is the syndrome length of one shot.
func (l *Lattice) NumDetectors() int { return len(l.Coords) }

// Permutation returns the round permutation, or why none exists.
func (l *Lattice) Permutation() (*RoundPermutation, error) {
	return l.perm, l.permErr
}

// Filter keeps the triggered detectors of the decoded basis.
func (l *Lattice) Filter(triggered []int) ([]int, error) {
	out := make([]int, 0, len(triggered))
	for _, idx := range triggered {
		if idx < 0 || idx >= len(l.Roles) {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "detector %d of %d", idx, len(l.Roles))
		}
		if l.Roles[idx].Selected() {
			out = append(out, idx)
		}
	}
	return out, nil
}

// Unroll places already filtered detectors into a zeroed frame of
// FrameLen bits using
//
//	pos = t*roundLen + (y/2 - 1)*(columnLen/2) + x/4
func (l *Lattice) Unroll(filtered []int) ([]bool, error) {
	g := l.Geometry
	frame := make([]bool, g.FrameLen())
	for _, idx := range filtered {
		c := l.Coords[idx]
		pos := c.T*g.RoundLen + (c.Y/2-1)*(g.ColumnLen/2) + c.X/4
		if pos < 0 || pos >= len(frame) {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "detector %d at %s unrolls to %d, frame has %d", idx, c, pos, len(frame))
		}
		frame[pos] = true
	}
	return frame, nil
}

// Transform turns a sparse syndrome into the dense backend frame:
// basis filter, unroll, then the per-round permutation.
func (l *Lattice) Transform(triggered []int) ([]bool, error) {
	if l.permErr != nil {
		return nil, l.permErr
	}
	filtered, err := l.Filter(triggered)
	if err != nil {
		return nil, err
	}
	frame, err := l.Unroll(filtered)
	if err != nil {
		return nil, err
	}
	return l.perm.Apply(frame)
}

// LatticePoint is a detector position in the reference decoder's
// half-integer lattice frame.
type LatticePoint struct {
	X, Y, T float64
}

// Point converts a simulator coordinate into the reference decoder frame:
//
//	rotated     (x/2 - 0.5, y/2 - 0.5, t)
//	planar      (x/2 + 0.5, y/2, t)
//	repetition  (x/2, 0, t)
func (l *Lattice) Point(c Coordinate) LatticePoint {
	x, y := float64(c.X)/2, float64(c.Y)/2
	switch l.Geometry.Family {
	case Rotated:
		return LatticePoint{X: x - 0.5, Y: y - 0.5, T: float64(c.T)}
	case Planar:
		return LatticePoint{X: x + 0.5, Y: y, T: float64(c.T)}
	default:
		return LatticePoint{X: x, T: float64(c.T)}
	}
}

// CoordinateMap builds the sparse {point: flag} input of the reference
// decoder from already filtered detectors.
func (l *Lattice) CoordinateMap(filtered []int) map[LatticePoint]bool {
	m := make(map[LatticePoint]bool, len(filtered))
	for _, idx := range filtered {
		m[l.Point(l.Coords[idx])] = true
	}
	return m
}
