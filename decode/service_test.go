package decode_test

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/decode"
	"github.com/ufarch/syndec/internal/mocks"
	"github.com/ufarch/syndec/internal/packed"
	"github.com/ufarch/syndec/qec"
)

type denseFunc func(ctx context.Context, frame []bool) ([]qec.Correction, error)

func (f denseFunc) DecodeDense(ctx context.Context, frame []bool) ([]qec.Correction, error) {
	return f(ctx, frame)
}

func withDense(f denseFunc) backend.FactoryOption {
	return backend.WithDenseEngine(func() (backend.DenseDecoder, error) { return f, nil })
}

// distance-3 rotated memory experiment, 4 rounds of 6 detectors
func rotatedThree() []qec.Coordinate {
	var coords []qec.Coordinate
	for r := 0; r < 4; r++ {
		coords = append(coords,
			qec.Coordinate{X: 2, Y: 2, T: r}, qec.Coordinate{X: 6, Y: 2, T: r},
			qec.Coordinate{X: 0, Y: 4, T: r}, qec.Coordinate{X: 4, Y: 4, T: r},
			qec.Coordinate{X: 4, Y: 2, T: r}, qec.Coordinate{X: 2, Y: 4, T: r},
		)
	}
	return coords
}

const (
	at442 = 15 // (4,4,2), lands on dense bit 10
	at220 = 0  // (2,2,0), lands on dense bit 1
)

func shot(triggered ...int) []bool {
	s := make([]bool, 24)
	for _, i := range triggered {
		s[i] = true
	}
	return s
}

// boundaryEngine flips the observable for dense bit 10 and faults on bit 1.
func boundaryEngine(_ context.Context, frame []bool) ([]qec.Correction, error) {
	if frame[1] {
		return nil, errors.New("solver diverged")
	}
	if frame[10] {
		return []qec.Correction{{Round: 2, Row: 0, Col: 2}}, nil
	}
	return nil, nil
}

func denseConfig(workers int) decode.DecodeJobConfig {
	return decode.DecodeJobConfig{
		Family:  qec.Rotated,
		Backend: backend.Config{Kind: backend.KindDense},
		Workers: workers,
	}
}

func TestDecodeBatchFailSafe(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, workers := range []int{1, 3} {
		svc, err := decode.NewService(denseConfig(workers), rotatedThree(), nil, withDense(boundaryEngine))
		require.NoError(t, err)

		bits, rep, err := svc.DecodeBatch(context.Background(), [][]bool{
			shot(at442), shot(), shot(at442), shot(at220), shot(at442),
		})
		require.NoError(t, err)
		require.Equal(t, []bool{true, false, true, false, true}, bits, "workers=%d", workers)
		require.Equal(t, 5, rep.Shots)
		require.Equal(t, 1, rep.Failed)
		require.Equal(t, []int{3}, rep.FailedShots)
		require.Equal(t, 1, rep.Failures[decode.ReasonBackend])
	}
}

func TestDecodeBatchPanickingEngine(t *testing.T) {
	svc, err := decode.NewService(denseConfig(2), rotatedThree(), nil, withDense(func(_ context.Context, frame []bool) ([]qec.Correction, error) {
		if frame[1] {
			panic("solver bug")
		}
		return nil, nil
	}))
	require.NoError(t, err)
	bits, rep, err := svc.DecodeBatch(context.Background(), [][]bool{shot(at220), shot()})
	require.NoError(t, err)
	require.Equal(t, []bool{false, false}, bits)
	require.Equal(t, []int{0}, rep.FailedShots)
	require.Equal(t, 1, rep.Failures[decode.ReasonBackend])
}

func TestWorkerDecodeShotTypedError(t *testing.T) {
	svc, err := decode.NewService(denseConfig(1), rotatedThree(), nil, withDense(boundaryEngine))
	require.NoError(t, err)
	w, err := svc.NewWorker()
	require.NoError(t, err)
	defer w.Close()

	p, err := w.DecodeShot(context.Background(), 7, shot(at442))
	require.NoError(t, err)
	require.True(t, p)

	p, err = w.DecodeShot(context.Background(), 8, shot(at220))
	require.False(t, p)
	var de *decode.DecodeError
	require.True(t, errors.As(err, &de))
	require.Equal(t, 8, de.Shot)
	require.True(t, errors.Is(err, backend.ErrBackend))

	_, err = w.DecodeShot(context.Background(), 9, make([]bool, 5))
	require.True(t, errors.Is(err, qec.ErrIndexOutOfRange), "got %v", err)
	require.Equal(t, decode.ReasonLayout, decode.Reason(err))
}

func TestShotTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := denseConfig(2)
	cfg.ShotTimeout = 20 * time.Millisecond
	svc, err := decode.NewService(cfg, rotatedThree(), nil, withDense(func(ctx context.Context, frame []bool) ([]qec.Correction, error) {
		switch {
		case frame[1]:
			<-ctx.Done()
			return nil, ctx.Err()
		case frame[10]:
			// ignores the deadline and answers late
			time.Sleep(60 * time.Millisecond)
			return []qec.Correction{{Col: 2}}, nil
		}
		return []qec.Correction{{Col: 2}}, nil
	}))
	require.NoError(t, err)

	bits, rep, err := svc.DecodeBatch(context.Background(), [][]bool{shot(at220), shot(at442), shot()})
	require.NoError(t, err)
	require.Equal(t, []bool{false, false, true}, bits)
	require.Equal(t, 2, rep.Failures[decode.ReasonTimeout])
}

func TestRunWritesWholeChunksOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	cfg := denseConfig(1)
	cfg.ChunkShots = 2
	svc, err := decode.NewService(cfg, rotatedThree(), nil, withDense(func(ctx context.Context, frame []bool) ([]qec.Correction, error) {
		if calls.Add(1) == 3 {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return boundaryEngine(ctx, frame)
	}))
	require.NoError(t, err)

	var in bytes.Buffer
	w := packed.NewWriter(&in, 24)
	for i := 0; i < 6; i++ {
		require.NoError(t, w.Write(shot(at442)))
	}
	require.NoError(t, w.Flush())

	var out bytes.Buffer
	rep, err := svc.Run(ctx, &in, &out)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	require.Equal(t, 2, rep.Shots)
	require.Equal(t, []byte{1, 1}, out.Bytes())
}

func TestRunPacksPredictions(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := denseConfig(2)
	cfg.ChunkShots = 3
	svc, err := decode.NewService(cfg, rotatedThree(), nil, withDense(boundaryEngine))
	require.NoError(t, err)

	var in bytes.Buffer
	w := packed.NewWriter(&in, 24)
	for _, s := range [][]bool{shot(at442), shot(), shot(at220), shot(at442, at220), shot(at442), shot(), shot(at442)} {
		require.NoError(t, w.Write(s))
	}
	require.NoError(t, w.Flush())
	// 24 detectors: three bytes per row
	require.Equal(t, 7*3, in.Len())

	var out bytes.Buffer
	rep, err := svc.Run(context.Background(), &in, &out)
	require.NoError(t, err)
	require.Equal(t, 7, rep.Shots)
	require.Equal(t, []int{2, 3}, rep.FailedShots)
	require.Equal(t, []byte{1, 0, 0, 0, 1, 0, 1}, out.Bytes())
}

func TestPredictionCache(t *testing.T) {
	var calls atomic.Int32
	cfg := denseConfig(1)
	cfg.CacheSize = 16
	svc, err := decode.NewService(cfg, rotatedThree(), nil, withDense(func(ctx context.Context, frame []bool) ([]qec.Correction, error) {
		calls.Add(1)
		return boundaryEngine(ctx, frame)
	}))
	require.NoError(t, err)

	// the X-basis detector 4 is filtered out, so all four shots share a key
	bits, rep, err := svc.DecodeBatch(context.Background(), [][]bool{
		shot(at442), shot(at442), shot(at442, 4), shot(at442),
	})
	require.NoError(t, err)
	require.Equal(t, []bool{true, true, true, true}, bits)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 3, rep.CacheHits)

	// failures are not cached
	_, rep, err = svc.DecodeBatch(context.Background(), [][]bool{shot(at220), shot(at220)})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Failed)
	require.EqualValues(t, 3, calls.Load())
}

func TestCoordinateMapService(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := decode.DecodeJobConfig{
		Family:  qec.Rotated,
		Backend: backend.Config{Kind: backend.KindCoordinateMap},
		Workers: 1,
	}
	eng := mocks.NewMockMatchingDecoder(ctrl)
	eng.EXPECT().Match(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req backend.MatchRequest) ([]backend.Matching, error) {
		if len(req.Defects) == 0 {
			return nil, nil
		}
		return []backend.Matching{{"ex-(0,0)|2", "ex-(1.5,1.5)|2"}}, nil
	}).Times(2)
	svc, err := decode.NewService(cfg, rotatedThree(), nil,
		backend.WithMatchingEngine(func() (backend.MatchingDecoder, error) { return eng, nil }))
	require.NoError(t, err)

	bits, rep, err := svc.DecodeBatch(context.Background(), [][]bool{shot(at442), shot()})
	require.NoError(t, err)
	require.Zero(t, rep.Failed)
	require.Equal(t, []bool{true, false}, bits)
}

func TestNewServiceRejectsBadJobs(t *testing.T) {
	_, err := decode.NewService(denseConfig(1), nil, nil, withDense(boundaryEngine))
	require.True(t, errors.Is(err, qec.ErrMalformedGeometry), "got %v", err)

	cfg := denseConfig(1)
	cfg.Family = qec.Repetition
	_, err = decode.NewService(cfg, []qec.Coordinate{{X: 1}, {X: 3}}, nil, withDense(boundaryEngine))
	require.Error(t, err)

	cfg = denseConfig(1)
	cfg.Backend.Kind = "blossom"
	_, err = decode.NewService(cfg, rotatedThree(), nil)
	require.Error(t, err)
}

func TestValidateDefaults(t *testing.T) {
	cfg := denseConfig(0)
	require.NoError(t, cfg.Validate())
	require.GreaterOrEqual(t, cfg.Workers, 1)
	require.Equal(t, 1024, cfg.ChunkShots)

	cfg.ShotTimeout = -time.Second
	require.Error(t, cfg.Validate())
}
