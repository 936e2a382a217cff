package qec

// Basis is one of the two interleaved stabilizer check types.
type Basis uint8

const (
	// BasisZ checks are the ones the memory observable is decoded from.
	BasisZ Basis = iota
	BasisX
)

func (b Basis) String() string {
	if b == BasisX {
		return "X"
	}
	return "Z"
}

// DetectorRole tags a detector with its check basis and round.
type DetectorRole struct {
	Basis Basis
	Round int
}

// Selected reports whether the detector belongs to the decoded basis.
func (r DetectorRole) Selected() bool { return r.Basis == BasisZ }

// Classify computes the role table for a job. Surface families split the
// lattice with (x/2)%2 == (y/2)%2; repetition codes have one basis.
// The table is meant to be built once and shared by every shot.
func Classify(family Family, coords []Coordinate) []DetectorRole {
	roles := make([]DetectorRole, len(coords))
	for i, c := range coords {
		roles[i].Round = c.T
		if family == Repetition {
			continue
		}
		if (c.X/2)%2 != (c.Y/2)%2 {
			roles[i].Basis = BasisX
		}
	}
	return roles
}
