// Package backend connects the syndrome pipeline to decoding engines.
//
// Two adapter variants exist and the set is closed: DenseAdapter feeds the
// permuted dense frame to a hardware-oriented decoder, CoordinateMapAdapter
// feeds the sparse coordinate map to a reference clustering decoder and
// parses the matchings it returns. Both normalize to a qec.CorrectionSet.
package backend

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/ufarch/syndec/qec"
)

// ErrBackend marks an internal fault of a decoding engine: a solver error,
// a crashed process, a panic or an unreadable answer.
var ErrBackend = errors.New("backend fault")

// Kind selects the adapter variant.
type Kind string

const (
	KindDense         Kind = "dense"
	KindCoordinateMap Kind = "coordmap"
)

// ParseKind accepts the configuration spelling of a backend kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dense", "uf-arch", "ufarch":
		return KindDense, nil
	case "coordmap", "coordinate-map", "unionfind", "union-find":
		return KindCoordinateMap, nil
	}
	return "", errors.Errorf("unknown backend kind %q (want dense|coordmap)", s)
}

// Config selects a backend and carries its tunables. Options are passed
// through to the engine untouched.
type Config struct {
	Kind    Kind              `yaml:"kind"`
	Command []string          `yaml:"command"`
	Options map[string]string `yaml:"options"`
}

//go:generate mockgen -typed=false -package mocks -destination ../internal/mocks/backend.go github.com/ufarch/syndec/backend DenseDecoder,MatchingDecoder

// DenseDecoder is a hardware-oriented decoder taking the dense per-round
// frame and returning horizontal corrections as (round, row, col).
type DenseDecoder interface {
	DecodeDense(ctx context.Context, frame []bool) ([]qec.Correction, error)
}

// MatchRequest is one shot for a MatchingDecoder.
type MatchRequest struct {
	Family  qec.Family
	Size    [3]int // distance, distance, rounds+1 for every family
	Defects []qec.LatticePoint
}

// Matching is a pair of endpoint tokens, e.g. {"ex-(0.5,1.5)|2", "ex-(1.5,1.5)|2"}.
type Matching [2]string

// MatchingDecoder is a reference decoder working on the coordinate map.
type MatchingDecoder interface {
	Match(ctx context.Context, req MatchRequest) ([]Matching, error)
}

// Adapter decodes one shot, given the indices of its triggered detectors.
// The returned error is nil, a context error, a qec layout error or
// wraps ErrBackend.
type Adapter interface {
	Kind() Kind
	Decode(ctx context.Context, triggered []int) (qec.CorrectionSet, error)
	Close() error

	adapter()
}

// faultError reports as ErrBackend while keeping its cause reachable.
type faultError struct {
	cause error
}

func (e *faultError) Error() string        { return ErrBackend.Error() + ": " + e.cause.Error() }
func (e *faultError) Unwrap() error        { return e.cause }
func (e *faultError) Is(target error) bool { return target == ErrBackend }

// fault classifies an engine error. Context errors pass through so the
// caller can tell a timeout from a solver fault.
func fault(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrBackend) {
		return err
	}
	return &faultError{cause: err}
}

func closeEngine(engine any) error {
	if c, ok := engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
