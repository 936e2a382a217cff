package backend

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ufarch/syndec/qec"
)

// Factory builds one Adapter per worker. Engines holding state across
// calls, external processes included, are never shared between workers.
type Factory struct {
	cfg    Config
	lat    *qec.Lattice
	logger *zap.Logger

	dense    func() (DenseDecoder, error)
	matching func() (MatchingDecoder, error)
}

// FactoryOption overrides how engines are created.
type FactoryOption func(*Factory)

// WithDenseEngine supplies in-process dense engines instead of cfg.Command.
func WithDenseEngine(fn func() (DenseDecoder, error)) FactoryOption {
	return func(f *Factory) { f.dense = fn }
}

// WithMatchingEngine supplies in-process matching engines instead of cfg.Command.
func WithMatchingEngine(fn func() (MatchingDecoder, error)) FactoryOption {
	return func(f *Factory) { f.matching = fn }
}

// NewFactory checks that cfg can serve the lattice: the dense variant
// needs a surface code, and every variant needs an engine source.
func NewFactory(cfg Config, lat *qec.Lattice, logger *zap.Logger, opts ...FactoryOption) (*Factory, error) {
	if lat == nil {
		return nil, errors.New("backend factory: nil lattice")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{cfg: cfg, lat: lat, logger: logger.Named("backend")}
	for _, o := range opts {
		o(f)
	}
	switch cfg.Kind {
	case KindDense:
		if _, err := lat.Permutation(); err != nil {
			return nil, errors.Wrap(err, "dense backend")
		}
		if f.dense == nil {
			if len(cfg.Command) == 0 {
				return nil, errors.New("dense backend: no command configured")
			}
			f.dense = func() (DenseDecoder, error) {
				return NewDenseProcess(f.cfg, f.lat.Geometry, f.logger)
			}
		}
	case KindCoordinateMap:
		if f.matching == nil {
			if len(cfg.Command) == 0 {
				return nil, errors.New("coordinate map backend: no command configured")
			}
			f.matching = func() (MatchingDecoder, error) {
				return NewMatchingProcess(f.cfg, f.logger)
			}
		}
	default:
		return nil, errors.Errorf("unknown backend kind %q", cfg.Kind)
	}
	return f, nil
}

// Kind is the configured variant.
func (f *Factory) Kind() Kind { return f.cfg.Kind }

// New returns a fresh adapter with its own engine.
func (f *Factory) New() (Adapter, error) {
	switch f.cfg.Kind {
	case KindDense:
		eng, err := f.dense()
		if err != nil {
			return nil, errors.Wrap(err, "create dense engine")
		}
		a, err := NewDenseAdapter(f.lat, eng, f.logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		eng, err := f.matching()
		if err != nil {
			return nil, errors.Wrap(err, "create matching engine")
		}
		a, err := NewCoordinateMapAdapter(f.lat, eng, f.logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}
