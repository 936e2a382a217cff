package decode

import (
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/qec"
)

// DecodeJobConfig is everything a decoding job needs besides its data.
// It is passed to NewService explicitly; nothing is read from globals.
type DecodeJobConfig struct {
	Family  qec.Family     `yaml:"family"`
	Backend backend.Config `yaml:"backend"`

	Workers     int           `yaml:"workers"`      // decode workers (default NumCPU-1, at least 1)
	ShotTimeout time.Duration `yaml:"shot_timeout"` // per-shot deadline, 0 disables
	ChunkShots  int           `yaml:"chunk_shots"`  // shots read, decoded and written together (default 1024)
	CacheSize   int           `yaml:"cache_size"`   // prediction cache entries, 0 disables
}

func (c *DecodeJobConfig) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = max(runtime.NumCPU()-1, 1)
	}
	if c.ChunkShots <= 0 {
		c.ChunkShots = 1024
	}
}

// Validate fills defaults and rejects configurations no job can run with.
func (c *DecodeJobConfig) Validate() error {
	c.setDefaults()
	if !c.Family.Valid() {
		return errors.Errorf("code family %q is not one of repetition, planar, rotated", c.Family)
	}
	switch c.Backend.Kind {
	case backend.KindDense:
		if c.Family == qec.Repetition {
			return errors.New("dense backend supports surface codes only")
		}
	case backend.KindCoordinateMap:
	default:
		return errors.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.ShotTimeout < 0 {
		return errors.New("shot timeout must not be negative")
	}
	if c.CacheSize < 0 {
		return errors.New("cache size must not be negative")
	}
	return nil
}
