package qec

// Row and column parity of the boundary the logical operator crosses,
// in the reference decoder's lattice frame.
var (
	observableRow    = map[Family]int{Rotated: 1, Planar: 0}
	observableParity = map[Family]int{Rotated: 1, Planar: 0}
)

// ExtractParity reduces a CorrectionSet to the predicted flip of the
// logical observable:
//
//   - dense corrections flip it once per entry on column d-1;
//   - matchings on surface codes flip it once per entry on the
//     observable row with the observable column parity;
//   - matchings on repetition codes flip it once per entry on
//     column 2(d-1).
func ExtractParity(family Family, set CorrectionSet, g Geometry) bool {
	parity := false
	switch set.Origin {
	case OriginDense:
		for _, c := range set.Entries {
			if c.Col == g.Distance-1 {
				parity = !parity
			}
		}
	case OriginMatching:
		if family == Repetition {
			for _, c := range set.Entries {
				if c.Col == (g.Distance-1)*2 {
					parity = !parity
				}
			}
			return parity
		}
		row, par := observableRow[family], observableParity[family]
		for _, c := range set.Entries {
			if c.Row == row && mod2(c.Col) == par {
				parity = !parity
			}
		}
	}
	return parity
}

// mod2 is the non-negative remainder, so boundary columns at -1 count as odd.
func mod2(v int) int { return ((v % 2) + 2) % 2 }
