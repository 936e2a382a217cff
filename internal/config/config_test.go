package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/qec"
)

const sample = `family: surface_code:rotated_memory_z
backend:
  kind: uf-arch
  command: [uf-arch-cli, --mode=batch]
  options:
    early-stop: "8"
workers: 4
shot_timeout: 250ms
chunk_shots: 512
cache_size: 100
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, sample))
	require.NoError(t, err)
	require.Equal(t, qec.Rotated, cfg.Family)
	require.Equal(t, backend.KindDense, cfg.Backend.Kind)
	require.Equal(t, []string{"uf-arch-cli", "--mode=batch"}, cfg.Backend.Command)
	require.Equal(t, map[string]string{"early-stop": "8"}, cfg.Backend.Options)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, 250*time.Millisecond, cfg.ShotTimeout)
	require.Equal(t, 512, cfg.ChunkShots)
	require.Equal(t, 100, cfg.CacheSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SYNDEC_FAMILY", "planar")
	t.Setenv("SYNDEC_BACKEND", "coordmap")
	t.Setenv("SYNDEC_BACKEND_COMMAND", "python3 uf_server.py")
	t.Setenv("SYNDEC_WORKERS", "2")
	cfg, err := Load(writeFile(t, sample))
	require.NoError(t, err)
	require.Equal(t, qec.Planar, cfg.Family)
	require.Equal(t, backend.KindCoordinateMap, cfg.Backend.Kind)
	require.Equal(t, []string{"python3", "uf_server.py"}, cfg.Backend.Command)
	require.Equal(t, 2, cfg.Workers)

	t.Setenv("SYNDEC_WORKERS", "many")
	_, err = Load(writeFile(t, sample))
	require.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "family: [unclosed\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "family: color\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "backend:\n  kind: blossom\n"))
	require.Error(t, err)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Empty(t, cfg.Family)
}
