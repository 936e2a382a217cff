// Package dem reads detector coordinates out of a detector error model
// in the simulator's text format. Only the instructions that place
// detectors are interpreted:
//
//	detector(x, y, t) D3
//	shift_detectors(0, 0, 1) 8
//	repeat 5 { ... }
//
// Everything else (error, logical_observable, ...) is skipped.
package dem

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ufarch/syndec/qec"
)

type instruction struct {
	line    int
	name    string
	args    []float64
	targets []string
	body    []instruction
}

// LoadFile parses the model at path.
func LoadFile(path string) ([]qec.Coordinate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open detector error model")
	}
	defer f.Close()
	coords, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return coords, nil
}

// Parse returns the coordinate table indexed by detector id. Two-value
// coordinates (repetition codes) become (x, 0, t). Detectors without
// coordinates, non-integer coordinates or gaps in the id range are
// reported as qec.ErrMalformedGeometry.
func Parse(r io.Reader) ([]qec.Coordinate, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	p := &parser{sc: sc}
	prog, err := p.block(false)
	if err != nil {
		return nil, err
	}
	st := &state{coords: make(map[int][]float64)}
	if err := st.exec(prog); err != nil {
		return nil, err
	}
	return st.table()
}

type parser struct {
	sc   *bufio.Scanner
	line int
}

func (p *parser) block(nested bool) ([]instruction, error) {
	var out []instruction
	for p.sc.Scan() {
		p.line++
		s := p.sc.Text()
		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if s == "}" {
			if !nested {
				return nil, errors.Errorf("line %d: unmatched '}'", p.line)
			}
			return out, nil
		}
		opens := strings.HasSuffix(s, "{")
		if opens {
			s = strings.TrimSpace(strings.TrimSuffix(s, "{"))
		}
		in, err := parseInstruction(s)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", p.line)
		}
		in.line = p.line
		if opens {
			if in.name != "repeat" {
				return nil, errors.Errorf("line %d: only repeat opens a block", p.line)
			}
			if in.body, err = p.block(true); err != nil {
				return nil, err
			}
		}
		out = append(out, in)
	}
	if err := p.sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read detector error model")
	}
	if nested {
		return nil, errors.New("unterminated repeat block")
	}
	return out, nil
}

func parseInstruction(s string) (instruction, error) {
	var in instruction
	ws := strings.IndexAny(s, " \t")
	paren := strings.IndexByte(s, '(')
	rest := ""
	if paren >= 0 && (ws < 0 || paren < ws) {
		end := strings.IndexByte(s, ')')
		if end < paren {
			return in, errors.Errorf("unbalanced parentheses in %q", s)
		}
		in.name = s[:paren]
		for _, a := range strings.Split(s[paren+1:end], ",") {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return in, errors.Wrapf(err, "argument of %s", in.name)
			}
			in.args = append(in.args, v)
		}
		rest = s[end+1:]
	} else if ws >= 0 {
		in.name, rest = s[:ws], s[ws:]
	} else {
		in.name = s
	}
	if i := strings.IndexByte(in.name, '['); i >= 0 {
		in.name = in.name[:i]
	}
	in.name = strings.ToLower(strings.TrimSpace(in.name))
	in.targets = strings.Fields(rest)
	return in, nil
}

type state struct {
	offset int
	shift  []float64
	coords map[int][]float64
}

func (st *state) exec(prog []instruction) error {
	for _, in := range prog {
		switch in.name {
		case "detector":
			for _, tg := range in.targets {
				if !strings.HasPrefix(tg, "D") {
					return errors.Errorf("line %d: bad detector target %q", in.line, tg)
				}
				id, err := strconv.Atoi(tg[1:])
				if err != nil || id < 0 {
					return errors.Errorf("line %d: bad detector target %q", in.line, tg)
				}
				c := make([]float64, len(in.args))
				for i, v := range in.args {
					if i < len(st.shift) {
						v += st.shift[i]
					}
					c[i] = v
				}
				st.coords[st.offset+id] = c
			}
		case "shift_detectors":
			for i, v := range in.args {
				for len(st.shift) <= i {
					st.shift = append(st.shift, 0)
				}
				st.shift[i] += v
			}
			if len(in.targets) > 0 {
				n, err := strconv.Atoi(in.targets[0])
				if err != nil || n < 0 {
					return errors.Errorf("line %d: bad detector shift %q", in.line, in.targets[0])
				}
				st.offset += n
			}
		case "repeat":
			if len(in.targets) != 1 {
				return errors.Errorf("line %d: repeat needs a count", in.line)
			}
			n, err := strconv.Atoi(in.targets[0])
			if err != nil || n < 0 {
				return errors.Errorf("line %d: bad repeat count %q", in.line, in.targets[0])
			}
			for i := 0; i < n; i++ {
				if err := st.exec(in.body); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (st *state) table() ([]qec.Coordinate, error) {
	out := make([]qec.Coordinate, len(st.coords))
	for id, c := range st.coords {
		if id >= len(out) {
			return nil, errors.Wrapf(qec.ErrMalformedGeometry, "detector ids are not contiguous (D%d of %d)", id, len(out))
		}
		var xyz [3]float64
		switch len(c) {
		case 2:
			xyz = [3]float64{c[0], 0, c[1]}
		case 3:
			xyz = [3]float64{c[0], c[1], c[2]}
		default:
			return nil, errors.Wrapf(qec.ErrMalformedGeometry, "detector D%d has %d coordinates, want 2 or 3", id, len(c))
		}
		var ints [3]int
		for i, v := range xyz {
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(qec.ErrMalformedGeometry, "detector D%d has non-integer coordinate %g", id, v)
			}
			ints[i] = int(v)
		}
		out[id] = qec.Coordinate{X: ints[0], Y: ints[1], T: ints[2]}
	}
	return out, nil
}
