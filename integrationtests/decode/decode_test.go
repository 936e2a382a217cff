package decode_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/decode"
	"github.com/ufarch/syndec/internal/dem"
	"github.com/ufarch/syndec/internal/packed"
	"github.com/ufarch/syndec/qec"
)

const fakeBackendEnv = "SYNDEC_FAKE_BACKEND"

// TestFakeBackend is the decoder process started by the tests below.
// In dense mode it reports a boundary correction when dense bit 10 is
// set and a solver fault when bit 1 is set. In matching mode it matches
// every defect to the left boundary.
func TestFakeBackend(t *testing.T) {
	mode := os.Getenv(fakeBackendEnv)
	if mode == "" {
		return
	}
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		line := sc.Text()
		switch mode {
		case "dense":
			bits := strings.Fields(line)
			switch {
			case bits[1] == "1":
				fmt.Println("!singular")
			case bits[10] == "1":
				fmt.Println("H(2,0,1):1|H(2,0,2):1|V(2,1,0):1|")
			default:
				fmt.Println("")
			}
		case "matching":
			if strings.Contains(line, `"defects":[]`) {
				fmt.Println(`{"matchings":[],"error":""}`)
			} else {
				fmt.Println(`{"matchings":[["ex-(0,0)|2","ex-(1.5,1.5)|2"]],"error":""}`)
			}
		}
	}
	os.Exit(0)
}

func fakeBackend(t *testing.T, mode string) []string {
	t.Setenv(fakeBackendEnv, mode)
	return []string{os.Args[0], "-test.run=TestFakeBackend", "--"}
}

const rotatedModel = `detector(2, 2, 0) D0
detector(6, 2, 0) D1
detector(0, 4, 0) D2
detector(4, 4, 0) D3
detector(4, 2, 0) D4
detector(2, 4, 0) D5
repeat 3 {
    shift_detectors(0, 0, 1) 6
    detector(2, 2, 0) D0
    detector(6, 2, 0) D1
    detector(0, 4, 0) D2
    detector(4, 4, 0) D3
    detector(4, 2, 0) D4
    detector(2, 4, 0) D5
}
`

// writeShots packs shots of 24 detectors; each shot lists its triggered ids.
func writeShots(t *testing.T, path string, shots [][]int) {
	var buf bytes.Buffer
	w := packed.NewWriter(&buf, 24)
	for _, s := range shots {
		row := make([]bool, 24)
		for _, i := range s {
			row[i] = true
		}
		require.NoError(t, w.Write(row))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func runFiles(t *testing.T, cfg decode.DecodeJobConfig, shots [][]int) ([]byte, decode.Report) {
	dir := t.TempDir()
	demPath := filepath.Join(dir, "circuit.dem")
	require.NoError(t, os.WriteFile(demPath, []byte(rotatedModel), 0o644))
	inPath := filepath.Join(dir, "dets.b8")
	writeShots(t, inPath, shots)

	coords, err := dem.LoadFile(demPath)
	require.NoError(t, err)
	svc, err := decode.NewService(cfg, coords, zaptest.NewLogger(t))
	require.NoError(t, err)

	in, err := os.Open(inPath)
	require.NoError(t, err)
	defer in.Close()
	outPath := filepath.Join(dir, "obs.b8")
	out, err := os.Create(outPath)
	require.NoError(t, err)
	rep, err := svc.Run(context.Background(), in, out)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	return b, rep
}

func TestDenseProcessEndToEnd(t *testing.T) {
	cfg := decode.DecodeJobConfig{
		Family: qec.Rotated,
		Backend: backend.Config{
			Kind:    backend.KindDense,
			Command: fakeBackend(t, "dense"),
			Options: map[string]string{"early-stop": "8"},
		},
		Workers:    2,
		ChunkShots: 4,
	}
	// 15 is (4,4,2), 0 is (2,2,0), 16 is the X-basis (4,2,2)
	shots := [][]int{{15}, {}, {16}, {0}, {15, 16}, {15, 0}, {}, {15}, {15}}
	got, rep := runFiles(t, cfg, shots)
	require.Equal(t, []byte{1, 0, 0, 0, 1, 0, 0, 1, 1}, got)
	require.Equal(t, 9, rep.Shots)
	require.Equal(t, []int{3, 5}, rep.FailedShots)
	require.Equal(t, 2, rep.Failures[decode.ReasonBackend])
}

func TestCoordinateMapProcessEndToEnd(t *testing.T) {
	cfg := decode.DecodeJobConfig{
		Family: qec.Rotated,
		Backend: backend.Config{
			Kind:    backend.KindCoordinateMap,
			Command: fakeBackend(t, "matching"),
		},
		Workers:   3,
		CacheSize: 8,
	}
	got, rep := runFiles(t, cfg, [][]int{{15}, {}, {16}, {15}, {3, 9}})
	require.Equal(t, []byte{1, 0, 0, 1, 1}, got)
	require.Zero(t, rep.Failed)
}
