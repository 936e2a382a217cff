package qec

// Origin tells which backend variant produced a CorrectionSet; it selects
// the parity rule.
type Origin uint8

const (
	OriginDense Origin = iota + 1
	OriginMatching
)

func (o Origin) String() string {
	switch o {
	case OriginDense:
		return "dense"
	case OriginMatching:
		return "matching"
	}
	return "unknown"
}

// Correction is one correction descriptor in the canonical
// (round, row, col) frame. Token keeps the raw matching string for
// corrections parsed from the reference decoder.
type Correction struct {
	Round int
	Row   int
	Col   int
	Token string
}

// CorrectionSet is the normalized output of a backend for one shot.
type CorrectionSet struct {
	Origin  Origin
	Entries []Correction
}

// Len returns the number of corrections.
func (s CorrectionSet) Len() int { return len(s.Entries) }
