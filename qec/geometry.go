// Package qec holds the syndrome-side algorithms of the decoder: lattice
// geometry inference, detector classification, the dense round layout with
// its intra-round permutation, matching-token parsing and logical parity
// extraction. Everything here is pure and safe to share between goroutines
// once built.
package qec

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Family is the code family of a memory experiment.
type Family string

const (
	Repetition Family = "repetition"
	Planar     Family = "planar"
	Rotated    Family = "rotated"
)

// ParseFamily accepts a family name or a simulator task name
// such as "surface_code:rotated_memory_z".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "repetition", "repetition_code:memory":
		return Repetition, nil
	case "planar", "unrotated", "surface_code:unrotated_memory_z", "surface_code:unrotated_memory_x":
		return Planar, nil
	case "rotated", "surface_code:rotated_memory_z", "surface_code:rotated_memory_x":
		return Rotated, nil
	}
	return "", errors.Errorf("unknown code family %q (want repetition|planar|rotated)", s)
}

// Valid reports whether f is one of the supported families.
func (f Family) Valid() bool {
	return f == Repetition || f == Planar || f == Rotated
}

// Surface reports whether f is a two-dimensional surface code family.
func (f Family) Surface() bool { return f == Planar || f == Rotated }

// Coordinate is a detector position as emitted by the simulator:
// lattice position doubled, plus the discrete time step.
type Coordinate struct {
	X, Y, T int
}

func (c Coordinate) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.T) }

// Geometry is derived once per job from the coordinate table.
//
// For surface families RowLen = (d-1)/2, ColumnLen = d+1 and
// RoundLen = RowLen*ColumnLen. Repetition codes have a single row of
// d-1 checks per round.
type Geometry struct {
	Family    Family
	Distance  int
	Rounds    int // highest time step observed, 0-indexed
	RowLen    int
	ColumnLen int
	RoundLen  int
}

// FrameLen is the dense frame length. Simulators emit one extra
// terminal round, hence Rounds+1.
func (g Geometry) FrameLen() int { return g.RoundLen * (g.Rounds + 1) }

func (g Geometry) String() string {
	return fmt.Sprintf("%s d=%d rounds=%d row=%d col=%d round=%d",
		g.Family, g.Distance, g.Rounds, g.RowLen, g.ColumnLen, g.RoundLen)
}

// Infer derives the code geometry from the detector coordinates.
//
// Distance, by family, from the largest x coordinate:
//
//	repetition  d = (max_x+1)/2 + 1
//	planar      d = max_x/2 + 1
//	rotated     d = max_x/2
func Infer(family Family, coords []Coordinate) (Geometry, error) {
	if !family.Valid() {
		return Geometry{}, errors.Wrapf(ErrMalformedGeometry, "unknown code family %q", family)
	}
	if len(coords) == 0 {
		return Geometry{}, errors.Wrap(ErrMalformedGeometry, "empty coordinate table")
	}
	maxX, maxT := 0, 0
	for i, c := range coords {
		if c.X < 0 || c.Y < 0 {
			return Geometry{}, errors.Wrapf(ErrMalformedGeometry, "detector %d: negative lattice position %s", i, c)
		}
		if c.T < 0 {
			return Geometry{}, errors.Wrapf(ErrMalformedGeometry, "detector %d: negative round %d", i, c.T)
		}
		// rotated checks sit on even (x, y) only
		if family == Rotated && (c.X%2 != 0 || c.Y%2 != 0) {
			return Geometry{}, errors.Wrapf(ErrMalformedGeometry, "detector %d: odd lattice position %s", i, c)
		}
		if c.X > maxX {
			maxX = c.X
		}
		if c.T > maxT {
			maxT = c.T
		}
	}

	g := Geometry{Family: family, Rounds: maxT}
	switch family {
	case Repetition:
		g.Distance = (maxX+1)/2 + 1
		if g.Distance < 2 {
			return Geometry{}, errors.Wrapf(ErrMalformedGeometry, "repetition distance %d from max_x=%d", g.Distance, maxX)
		}
		g.RowLen = g.Distance - 1
		g.ColumnLen = 1
	case Planar:
		g.Distance = maxX/2 + 1
	case Rotated:
		g.Distance = maxX / 2
	}
	if family.Surface() {
		if g.Distance < 3 {
			return Geometry{}, errors.Wrapf(ErrMalformedGeometry, "%s distance %d from max_x=%d", family, g.Distance, maxX)
		}
		g.RowLen = (g.Distance - 1) / 2
		g.ColumnLen = g.Distance + 1
	}
	g.RoundLen = g.RowLen * g.ColumnLen
	return g, nil
}
