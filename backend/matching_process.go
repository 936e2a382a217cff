package backend

import (
	"context"

	"github.com/francoispqt/gojay"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ufarch/syndec/qec"
)

// MatchingProcess drives an external reference decoder speaking JSON
// lines. Request:
//
//	{"code":"rotated","size":[3,3,4],"defects":[[1.5,1.5,2],...]}
//
// Response:
//
//	{"matchings":[["ex-(0.5,1.5)|2","ex-(1.5,1.5)|2"],...],"error":""}
//
// A non-empty "error" is a solver fault.
type MatchingProcess struct {
	proc *lineProcess
}

// NewMatchingProcess prepares the process; it is started on first use.
func NewMatchingProcess(cfg Config, logger *zap.Logger) (*MatchingProcess, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	argv := append(append([]string(nil), cfg.Command...), optionArgs(cfg.Options)...)
	proc, err := newLineProcess(argv, logger)
	if err != nil {
		return nil, err
	}
	return &MatchingProcess{proc: proc}, nil
}

// Match implements MatchingDecoder.
func (p *MatchingProcess) Match(ctx context.Context, req MatchRequest) ([]Matching, error) {
	body, err := gojay.MarshalJSONObject(&matchRequest{req: req})
	if err != nil {
		return nil, err
	}
	line, err := p.proc.roundTrip(ctx, body)
	if err != nil {
		return nil, err
	}
	var resp matchResponse
	if err := gojay.UnmarshalJSONObject([]byte(line), &resp); err != nil {
		return nil, &faultError{cause: err}
	}
	if resp.errMsg != "" {
		return nil, &faultError{cause: errors.New(resp.errMsg)}
	}
	return resp.matchings, nil
}

// Close stops the process.
func (p *MatchingProcess) Close() error { return p.proc.Close() }

type matchRequest struct {
	req MatchRequest
}

func (r *matchRequest) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("code", string(r.req.Family))
	enc.ArrayKey("size", intArray(r.req.Size[:]))
	enc.ArrayKey("defects", pointArray(r.req.Defects))
}

func (r *matchRequest) IsNil() bool { return r == nil }

type intArray []int

func (a intArray) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range a {
		enc.Int(v)
	}
}

func (a intArray) IsNil() bool { return false }

type pointArray []qec.LatticePoint

func (a pointArray) MarshalJSONArray(enc *gojay.Encoder) {
	for _, p := range a {
		enc.Array(point(p))
	}
}

func (a pointArray) IsNil() bool { return false }

type point qec.LatticePoint

func (p point) MarshalJSONArray(enc *gojay.Encoder) {
	enc.Float64(p.X)
	enc.Float64(p.Y)
	enc.Float64(p.T)
}

func (p point) IsNil() bool { return false }

type matchResponse struct {
	matchings matchingList
	errMsg    string
}

func (r *matchResponse) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "matchings":
		return dec.Array(&r.matchings)
	case "error":
		return dec.String(&r.errMsg)
	}
	return nil
}

func (r *matchResponse) NKeys() int { return 2 }

type matchingList []Matching

func (l *matchingList) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var pair endpointPair
	if err := dec.Array(&pair); err != nil {
		return err
	}
	*l = append(*l, pair.m)
	return nil
}

type endpointPair struct {
	m Matching
	n int
}

func (p *endpointPair) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var s string
	if err := dec.String(&s); err != nil {
		return err
	}
	if p.n < len(p.m) {
		p.m[p.n] = s
	}
	p.n++
	return nil
}
