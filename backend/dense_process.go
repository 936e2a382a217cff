package backend

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ufarch/syndec/qec"
)

// DenseProcess drives an external dense decoder over stdin/stdout.
//
// The process is started as
//
//	<command...> --distance=<d> --rounds=<r+1> [--<option>=<value>...]
//
// and receives one line of space separated 0/1 frame bits per shot. It
// answers with one line of corrections
//
//	H(round,row,col):v|V(round,row,col):v|...
//
// where only horizontal entries with v != 0 are corrections. A line
// starting with '!' reports a solver fault.
type DenseProcess struct {
	proc *lineProcess
}

// NewDenseProcess prepares the process; it is started on first use.
func NewDenseProcess(cfg Config, g qec.Geometry, logger *zap.Logger) (*DenseProcess, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	argv := append([]string(nil), cfg.Command...)
	argv = append(argv,
		"--distance="+strconv.Itoa(g.Distance),
		"--rounds="+strconv.Itoa(g.Rounds+1),
	)
	argv = append(argv, optionArgs(cfg.Options)...)
	proc, err := newLineProcess(argv, logger)
	if err != nil {
		return nil, err
	}
	return &DenseProcess{proc: proc}, nil
}

// DecodeDense implements DenseDecoder.
func (p *DenseProcess) DecodeDense(ctx context.Context, frame []bool) ([]qec.Correction, error) {
	line, err := p.proc.roundTrip(ctx, encodeFrame(frame))
	if err != nil {
		return nil, err
	}
	return parseDenseResponse(line)
}

// Close stops the process.
func (p *DenseProcess) Close() error { return p.proc.Close() }

func encodeFrame(frame []bool) []byte {
	b := make([]byte, 0, 2*len(frame))
	for i, v := range frame {
		if i > 0 {
			b = append(b, ' ')
		}
		if v {
			b = append(b, '1')
		} else {
			b = append(b, '0')
		}
	}
	return b
}

func parseDenseResponse(line string) ([]qec.Correction, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "!") {
		return nil, &faultError{cause: errors.New(strings.TrimSpace(line[1:]))}
	}
	var out []qec.Correction
	for _, entry := range strings.Split(line, "|") {
		if entry == "" {
			continue
		}
		key, val, ok := strings.Cut(entry, ":")
		if !ok || len(key) < 2 {
			return nil, &faultError{cause: errors.Errorf("bad correction entry %q", entry)}
		}
		v, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, &faultError{cause: errors.Errorf("bad correction value in %q", entry)}
		}
		var c [3]int
		if err := parseTriple(key[1:], &c); err != nil {
			return nil, &faultError{cause: errors.Wrapf(err, "entry %q", entry)}
		}
		switch key[0] {
		case 'H':
			if v != 0 {
				out = append(out, qec.Correction{Round: c[0], Row: c[1], Col: c[2]})
			}
		case 'V':
		default:
			return nil, &faultError{cause: errors.Errorf("bad correction kind in %q", entry)}
		}
	}
	return out, nil
}

func parseTriple(s string, dst *[3]int) error {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return errors.New("expected (round,row,col)")
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return errors.New("expected three coordinates")
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func optionArgs(opts map[string]string) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, "--"+k+"="+opts[k])
	}
	return args
}
