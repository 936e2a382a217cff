// Package config loads decoding job settings from a YAML file, with
// SYNDEC_* environment variables (optionally from a .env file) taking
// precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/decode"
	"github.com/ufarch/syndec/qec"
)

// File mirrors the YAML layout.
type File struct {
	Family  string `yaml:"family"`
	Backend struct {
		Kind    string            `yaml:"kind"`
		Command []string          `yaml:"command"`
		Options map[string]string `yaml:"options"`
	} `yaml:"backend"`
	Workers     int           `yaml:"workers"`
	ShotTimeout time.Duration `yaml:"shot_timeout"`
	ChunkShots  int           `yaml:"chunk_shots"`
	CacheSize   int           `yaml:"cache_size"`
}

// Load reads path; an empty path yields a configuration built from the
// environment alone. The result is not validated, so command line flags
// can still fill it in.
func Load(path string) (decode.DecodeJobConfig, error) {
	_ = godotenv.Load()

	var f File
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return decode.DecodeJobConfig{}, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(b, &f); err != nil {
			return decode.DecodeJobConfig{}, errors.Wrapf(err, "parse %s", path)
		}
	}
	if err := applyEnv(&f); err != nil {
		return decode.DecodeJobConfig{}, err
	}
	return f.JobConfig()
}

func applyEnv(f *File) error {
	if v := os.Getenv("SYNDEC_FAMILY"); v != "" {
		f.Family = v
	}
	if v := os.Getenv("SYNDEC_BACKEND"); v != "" {
		f.Backend.Kind = v
	}
	if v := os.Getenv("SYNDEC_BACKEND_COMMAND"); v != "" {
		f.Backend.Command = strings.Fields(v)
	}
	if v := os.Getenv("SYNDEC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "SYNDEC_WORKERS")
		}
		f.Workers = n
	}
	if v := os.Getenv("SYNDEC_SHOT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "SYNDEC_SHOT_TIMEOUT")
		}
		f.ShotTimeout = d
	}
	return nil
}

// JobConfig converts the file layout, resolving family and backend aliases.
func (f *File) JobConfig() (decode.DecodeJobConfig, error) {
	cfg := decode.DecodeJobConfig{
		Backend: backend.Config{
			Command: f.Backend.Command,
			Options: f.Backend.Options,
		},
		Workers:     f.Workers,
		ShotTimeout: f.ShotTimeout,
		ChunkShots:  f.ChunkShots,
		CacheSize:   f.CacheSize,
	}
	if f.Family != "" {
		fam, err := qec.ParseFamily(f.Family)
		if err != nil {
			return cfg, err
		}
		cfg.Family = fam
	}
	if f.Backend.Kind != "" {
		kind, err := backend.ParseKind(f.Backend.Kind)
		if err != nil {
			return cfg, err
		}
		cfg.Backend.Kind = kind
	}
	return cfg, nil
}
