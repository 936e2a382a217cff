package backend

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ufarch/syndec/qec"
)

// DenseAdapter runs the basis filter, the unroll and the round
// permutation, then hands the frame to a DenseDecoder.
type DenseAdapter struct {
	lat    *qec.Lattice
	engine DenseDecoder
	logger *zap.Logger
}

// NewDenseAdapter fails for code families without a dense round layout.
func NewDenseAdapter(lat *qec.Lattice, engine DenseDecoder, logger *zap.Logger) (*DenseAdapter, error) {
	if _, err := lat.Permutation(); err != nil {
		return nil, errors.Wrap(err, "dense backend")
	}
	if engine == nil {
		return nil, errors.New("dense backend: nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DenseAdapter{lat: lat, engine: engine, logger: logger}, nil
}

func (*DenseAdapter) adapter() {}

// Kind implements Adapter.
func (*DenseAdapter) Kind() Kind { return KindDense }

// Decode implements Adapter.
func (a *DenseAdapter) Decode(ctx context.Context, triggered []int) (qec.CorrectionSet, error) {
	set := qec.CorrectionSet{Origin: qec.OriginDense}
	frame, err := a.lat.Transform(triggered)
	if err != nil {
		return set, err
	}
	entries, err := a.call(ctx, frame)
	if err != nil {
		return set, err
	}
	set.Entries = entries
	return set, nil
}

func (a *DenseAdapter) call(ctx context.Context, frame []bool) (out []qec.Correction, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("dense solver panicked", zap.Any("panic", r))
			out, err = nil, &faultError{cause: errors.Errorf("solver panic: %v", r)}
		}
	}()
	out, err = a.engine.DecodeDense(ctx, frame)
	return out, fault(err)
}

// Close releases the engine if it holds resources.
func (a *DenseAdapter) Close() error { return closeEngine(a.engine) }
