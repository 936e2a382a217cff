package qec

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Matching tokens from the reference decoder look like
//
//	ex-(1.5,0.5)|2
//
// a two-letter basis prefix, a separator ('-' for space-like edges,
// '|' for time-like ones), the endpoint in the half-integer frame and an
// optional "|round" suffix.
func basisPrefix(f Family) string {
	if f == Planar {
		return "ez"
	}
	return "ex"
}

// ParseMatchingToken converts one matching endpoint into a Correction.
//
// It returns ok=false for tokens of the other basis and for time-like
// edges, which never cross the observable. Tokens with the right prefix
// that cannot be read fail with ErrUnparseableToken.
func ParseMatchingToken(family Family, token string) (c Correction, ok bool, err error) {
	if !family.Valid() {
		return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "unknown code family %q", family)
	}
	prefix := basisPrefix(family)
	if !strings.HasPrefix(token, prefix) || len(token) == len(prefix) {
		return Correction{}, false, nil
	}
	if token[len(prefix)] != '-' {
		// time-like edge or an unrelated node name
		return Correction{}, false, nil
	}
	rest := token[len(prefix)+1:]

	point, roundPart, hasRound := strings.Cut(rest, "|")
	if len(point) < 2 || point[0] != '(' || point[len(point)-1] != ')' {
		return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "%q: missing coordinate pair", token)
	}
	xs, ys, found := strings.Cut(point[1:len(point)-1], ",")
	if !found {
		return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "%q: coordinate pair needs two values", token)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "%q: %v", token, err)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "%q: %v", token, err)
	}
	round := 0
	if hasRound {
		round, err = strconv.Atoi(strings.TrimSpace(roundPart))
		if err != nil || round < 0 {
			return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "%q: bad round suffix", token)
		}
	}

	var col, row float64
	switch family {
	case Rotated:
		col, row = (a+0.5)*2, (b+0.5)*2
	case Planar:
		col, row = (a-0.5)*2, b*2
	case Repetition:
		col, row = a*2, 0
	}
	ci, okc := integral(col)
	ri, okr := integral(row)
	if !okc || !okr {
		return Correction{}, false, errors.Wrapf(ErrUnparseableToken, "%q: (%g,%g) is off the lattice", token, col, row)
	}
	return Correction{Round: round, Row: ri, Col: ci, Token: token}, true, nil
}

// ParseMatchings parses a list of endpoint tokens into a CorrectionSet,
// skipping tokens that do not belong to the decoded basis.
func ParseMatchings(family Family, tokens []string) (CorrectionSet, error) {
	set := CorrectionSet{Origin: OriginMatching}
	for _, tok := range tokens {
		c, ok, err := ParseMatchingToken(family, tok)
		if err != nil {
			return CorrectionSet{Origin: OriginMatching}, err
		}
		if ok {
			set.Entries = append(set.Entries, c)
		}
	}
	return set, nil
}

func integral(v float64) (int, bool) {
	r := math.Round(v)
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v-r) > 1e-9 {
		return 0, false
	}
	return int(r), true
}
