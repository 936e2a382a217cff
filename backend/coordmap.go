package backend

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ufarch/syndec/qec"
)

// CoordinateMapAdapter sends the filtered defects as lattice points to a
// MatchingDecoder and parses the first endpoint of every matching.
type CoordinateMapAdapter struct {
	lat    *qec.Lattice
	engine MatchingDecoder
	logger *zap.Logger
	size   [3]int
}

func NewCoordinateMapAdapter(lat *qec.Lattice, engine MatchingDecoder, logger *zap.Logger) (*CoordinateMapAdapter, error) {
	if engine == nil {
		return nil, errors.New("coordinate map backend: nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := lat.Geometry
	size := [3]int{g.Distance, g.Distance, g.Rounds + 1}
	return &CoordinateMapAdapter{lat: lat, engine: engine, logger: logger, size: size}, nil
}

func (*CoordinateMapAdapter) adapter() {}

// Kind implements Adapter.
func (*CoordinateMapAdapter) Kind() Kind { return KindCoordinateMap }

// Decode implements Adapter. Unreadable tokens are backend faults.
func (a *CoordinateMapAdapter) Decode(ctx context.Context, triggered []int) (qec.CorrectionSet, error) {
	empty := qec.CorrectionSet{Origin: qec.OriginMatching}
	filtered, err := a.lat.Filter(triggered)
	if err != nil {
		return empty, err
	}
	req := MatchRequest{
		Family:  a.lat.Geometry.Family,
		Size:    a.size,
		Defects: sortedPoints(a.lat.CoordinateMap(filtered)),
	}
	matchings, err := a.call(ctx, req)
	if err != nil {
		return empty, err
	}
	tokens := make([]string, len(matchings))
	for i, m := range matchings {
		tokens[i] = m[0]
	}
	set, err := qec.ParseMatchings(req.Family, tokens)
	if err != nil {
		return empty, fault(err)
	}
	return set, nil
}

func (a *CoordinateMapAdapter) call(ctx context.Context, req MatchRequest) (out []Matching, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("matching decoder panicked", zap.Any("panic", r))
			out, err = nil, &faultError{cause: errors.Errorf("solver panic: %v", r)}
		}
	}()
	out, err = a.engine.Match(ctx, req)
	return out, fault(err)
}

// Close releases the engine if it holds resources.
func (a *CoordinateMapAdapter) Close() error { return closeEngine(a.engine) }

func sortedPoints(m map[qec.LatticePoint]bool) []qec.LatticePoint {
	pts := make([]qec.LatticePoint, 0, len(m))
	for p, on := range m {
		if on {
			pts = append(pts, p)
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		a, b := pts[i], pts[j]
		if a.T != b.T {
			return a.T < b.T
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return pts
}
