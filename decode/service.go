// Package decode runs decoding jobs: it turns bit-packed syndromes into
// one predicted observable flip per shot, in shot order, on a pool of
// workers that each own a backend adapter.
package decode

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/internal/packed"
	"github.com/ufarch/syndec/qec"
)

// Report summarizes a run. Failed shots were written as parity 0.
type Report struct {
	Shots       int
	Failed      int
	Failures    map[string]int // by Reason
	FailedShots []int
	CacheHits   int
	Elapsed     time.Duration
}

func newReport() Report { return Report{Failures: make(map[string]int)} }

// Service holds the per-job read-only tables and the backend factory.
type Service struct {
	cfg     DecodeJobConfig
	lat     *qec.Lattice
	factory *backend.Factory
	cache   *predictionCache
	logger  *zap.Logger
}

// NewService validates cfg and builds the job tables from the detector
// coordinates. A malformed table fails here, before any shot is read.
func NewService(cfg DecodeJobConfig, coords []qec.Coordinate, logger *zap.Logger, opts ...backend.FactoryOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "decode job config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	lat, err := qec.NewLattice(cfg.Family, coords)
	if err != nil {
		return nil, err
	}
	factory, err := backend.NewFactory(cfg.Backend, lat, logger, opts...)
	if err != nil {
		return nil, err
	}
	cache, err := newPredictionCache(cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "prediction cache")
	}
	logger = logger.Named("decode")
	logger.Info("decoding job ready",
		zap.Stringer("geometry", lat.Geometry),
		zap.Int("detectors", lat.NumDetectors()),
		zap.String("backend", string(cfg.Backend.Kind)),
		zap.Int("workers", cfg.Workers),
	)
	return &Service{cfg: cfg, lat: lat, factory: factory, cache: cache, logger: logger}, nil
}

// Lattice returns the job tables.
func (s *Service) Lattice() *qec.Lattice { return s.lat }

// Config returns the validated configuration.
func (s *Service) Config() DecodeJobConfig { return s.cfg }

// Worker decodes shots one at a time with its own adapter.
type Worker struct {
	s       *Service
	adapter backend.Adapter
	kind    string
}

// NewWorker creates a worker. Close it to release its backend.
func (s *Service) NewWorker() (*Worker, error) {
	a, err := s.factory.New()
	if err != nil {
		return nil, err
	}
	return &Worker{s: s, adapter: a, kind: string(a.Kind())}, nil
}

func (w *Worker) Close() error { return w.adapter.Close() }

// DecodeShot predicts the observable flip of one shot. On failure the
// parity is false and the error is a *DecodeError.
func (w *Worker) DecodeShot(ctx context.Context, shot int, syndrome []bool) (bool, error) {
	parity, _, err := w.decode(ctx, shot, syndrome)
	return parity, err
}

func (w *Worker) decode(ctx context.Context, shot int, syndrome []bool) (parity, hit bool, err error) {
	s := w.s
	start := time.Now()
	defer func() { shotDuration.WithLabelValues(w.kind).Observe(time.Since(start).Seconds()) }()

	if len(syndrome) != s.lat.NumDetectors() {
		return false, false, &DecodeError{Shot: shot, Err: errors.Wrapf(qec.ErrIndexOutOfRange,
			"syndrome has %d detectors, coordinate table has %d", len(syndrome), s.lat.NumDetectors())}
	}
	triggered := make([]int, 0, 16)
	for i, b := range syndrome {
		if b {
			triggered = append(triggered, i)
		}
	}

	var key string
	if s.cache != nil {
		filtered, err := s.lat.Filter(triggered)
		if err != nil {
			return false, false, &DecodeError{Shot: shot, Err: err}
		}
		key = cacheKey(filtered)
		if p, ok := s.cache.get(key); ok {
			return p, true, nil
		}
	}

	shotCtx := ctx
	if s.cfg.ShotTimeout > 0 {
		var cancel context.CancelFunc
		shotCtx, cancel = context.WithTimeout(ctx, s.cfg.ShotTimeout)
		defer cancel()
	}
	set, err := w.adapter.Decode(shotCtx, triggered)
	if err == nil && ctx.Err() == nil && shotCtx.Err() != nil {
		// the backend answered, but too late
		err = shotCtx.Err()
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrapf(ErrShotTimeout, "after %s", s.cfg.ShotTimeout)
		}
		return false, false, &DecodeError{Shot: shot, Err: err}
	}
	parity = qec.ExtractParity(s.cfg.Family, set, s.lat.Geometry)
	if s.cache != nil {
		s.cache.add(key, parity)
	}
	return parity, false, nil
}

type shotResult struct {
	parity bool
	hit    bool
	err    error
}

func (s *Service) openWorkers(n int) ([]*Worker, error) {
	workers := make([]*Worker, 0, n)
	for i := 0; i < n; i++ {
		w, err := s.NewWorker()
		if err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "worker %d", i), closeWorkers(workers))
		}
		workers = append(workers, w)
	}
	return workers, nil
}

func closeWorkers(workers []*Worker) error {
	var err error
	for _, w := range workers {
		err = multierr.Append(err, w.Close())
	}
	return err
}

// decodeChunk fans rows out to the workers. Results keep row order. It
// fails only when ctx is done, in which case no result is returned.
func (s *Service) decodeChunk(ctx context.Context, workers []*Worker, base int, rows [][]bool) ([]shotResult, error) {
	results := make([]shotResult, len(rows))
	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error {
			activeWorkers.Inc()
			defer activeWorkers.Dec()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(rows) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				p, hit, err := w.decode(gctx, base+i, rows[i])
				if err != nil && gctx.Err() != nil {
					return gctx.Err()
				}
				results[i] = shotResult{parity: p, hit: hit, err: err}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// record folds chunk results into rep and returns the bits to write.
func (s *Service) record(rep *Report, base int, results []shotResult) []bool {
	kind := string(s.cfg.Backend.Kind)
	bits := make([]bool, len(results))
	for i, r := range results {
		rep.Shots++
		if r.hit {
			rep.CacheHits++
		}
		if r.err != nil {
			reason := Reason(r.err)
			rep.Failed++
			rep.Failures[reason]++
			rep.FailedShots = append(rep.FailedShots, base+i)
			shotsTotal.WithLabelValues(kind, "failed").Inc()
			failuresTotal.WithLabelValues(kind, reason).Inc()
			s.logger.Debug("shot failed, predicting no flip",
				zap.Int("shot", base+i), zap.String("reason", reason), zap.Error(r.err))
			continue
		}
		shotsTotal.WithLabelValues(kind, "ok").Inc()
		bits[i] = r.parity
	}
	return bits
}

// DecodeBatch decodes in-memory syndromes. Per-shot failures come back as
// false bits counted in the Report; the error is non-nil only if ctx ends
// first.
func (s *Service) DecodeBatch(ctx context.Context, syndromes [][]bool) (bits []bool, rep Report, err error) {
	rep = newReport()
	start := time.Now()
	workers, err := s.openWorkers(min(s.cfg.Workers, max(len(syndromes), 1)))
	if err != nil {
		return nil, rep, err
	}
	defer func() { err = multierr.Append(err, closeWorkers(workers)) }()

	results, err := s.decodeChunk(ctx, workers, 0, syndromes)
	if err != nil {
		return nil, rep, err
	}
	bits = s.record(&rep, 0, results)
	rep.Elapsed = time.Since(start)
	return bits, rep, nil
}

// Run streams a bit-packed syndrome table from in to a bit-packed
// prediction table on out, ChunkShots rows at a time. A chunk is written
// only once all its shots are decoded, so after cancellation out holds a
// whole number of chunks.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) (rep Report, err error) {
	rep = newReport()
	start := time.Now()
	rd := packed.NewReader(in, s.lat.NumDetectors())
	wr := packed.NewWriter(out, 1)

	workers, err := s.openWorkers(s.cfg.Workers)
	if err != nil {
		return rep, err
	}
	defer func() { err = multierr.Append(err, closeWorkers(workers)) }()

	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rows, err := rd.ReadChunk(s.cfg.ChunkShots)
		if err == io.EOF {
			break
		}
		if err != nil {
			return rep, errors.Wrap(err, "read syndromes")
		}
		base := rep.Shots
		results, err := s.decodeChunk(ctx, workers, base, rows)
		if err != nil {
			s.logger.Info("decoding cancelled", zap.Int("written_shots", base), zap.Error(err))
			return rep, err
		}
		for _, b := range s.record(&rep, base, results) {
			if err := wr.Write([]bool{b}); err != nil {
				return rep, errors.Wrap(err, "write predictions")
			}
		}
		if err := wr.Flush(); err != nil {
			return rep, errors.Wrap(err, "write predictions")
		}
	}
	rep.Elapsed = time.Since(start)
	s.logger.Info("decoding finished",
		zap.Int("shots", rep.Shots),
		zap.Int("failed", rep.Failed),
		zap.Int("cache_hits", rep.CacheHits),
		zap.Duration("elapsed", rep.Elapsed),
	)
	return rep, nil
}
