package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/decode"
	"github.com/ufarch/syndec/internal/config"
	"github.com/ufarch/syndec/internal/dem"
	"github.com/ufarch/syndec/qec"
)

var decodeFlags struct {
	dem         string
	in          string
	out         string
	family      string
	backend     string
	backendCmd  string
	options     map[string]string
	workers     int
	shotTimeout time.Duration
	chunk       int
	cache       int
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a bit-packed detection event file",
	Long: `Reads detector coordinates from a detector error model, then decodes
every shot of the --in file (ceil(detectors/8) bytes per shot, little-endian
bit order) and writes one predicted flip per shot to --out.

Shots the backend fails on are written as 0 and counted.

Example:
  syndec decode --dem circuit.dem --in dets.b8 --out obs.b8 \
    --family rotated --backend dense --backend-cmd "uf-arch-cli" --option early-stop=8`,
	Args: cobra.NoArgs,
	RunE: runDecode,
}

func init() {
	f := decodeCmd.Flags()
	f.StringVar(&decodeFlags.dem, "dem", "", "detector error model holding the detector coordinates")
	f.StringVar(&decodeFlags.in, "in", "", "bit-packed detection events")
	f.StringVar(&decodeFlags.out, "out", "", "bit-packed predictions to write")
	f.StringVar(&decodeFlags.family, "family", "", "code family: repetition, planar or rotated")
	f.StringVar(&decodeFlags.backend, "backend", "", "backend kind: dense or coordmap")
	f.StringVar(&decodeFlags.backendCmd, "backend-cmd", "", "backend executable and its fixed arguments")
	f.StringToStringVar(&decodeFlags.options, "option", nil, "backend tunable passed through as --key=value (repeatable)")
	f.IntVar(&decodeFlags.workers, "workers", 0, "decode workers (default NumCPU-1)")
	f.DurationVar(&decodeFlags.shotTimeout, "shot-timeout", 0, "per-shot deadline, e.g. 500ms")
	f.IntVar(&decodeFlags.chunk, "chunk", 0, "shots per read/decode/write chunk (default 1024)")
	f.IntVar(&decodeFlags.cache, "cache", 0, "prediction cache entries, 0 disables")
	_ = decodeCmd.MarkFlagRequired("dem")
	_ = decodeCmd.MarkFlagRequired("in")
	_ = decodeCmd.MarkFlagRequired("out")
}

// jobConfig merges the config file with the flags that were set.
func jobConfig(cmd *cobra.Command) (decode.DecodeJobConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("family") {
		if cfg.Family, err = qec.ParseFamily(decodeFlags.family); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("backend") {
		if cfg.Backend.Kind, err = backend.ParseKind(decodeFlags.backend); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("backend-cmd") {
		cfg.Backend.Command = strings.Fields(decodeFlags.backendCmd)
	}
	if flags.Changed("option") {
		if cfg.Backend.Options == nil {
			cfg.Backend.Options = make(map[string]string)
		}
		for k, v := range decodeFlags.options {
			cfg.Backend.Options[k] = v
		}
	}
	if flags.Changed("workers") {
		cfg.Workers = decodeFlags.workers
	}
	if flags.Changed("shot-timeout") {
		cfg.ShotTimeout = decodeFlags.shotTimeout
	}
	if flags.Changed("chunk") {
		cfg.ChunkShots = decodeFlags.chunk
	}
	if flags.Changed("cache") {
		cfg.CacheSize = decodeFlags.cache
	}
	return cfg, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := jobConfig(cmd)
	if err != nil {
		return err
	}
	coords, err := dem.LoadFile(decodeFlags.dem)
	if err != nil {
		return err
	}
	svc, err := decode.NewService(cfg, coords, logger)
	if err != nil {
		return err
	}

	in, err := os.Open(decodeFlags.in)
	if err != nil {
		return errors.Wrap(err, "open detection events")
	}
	defer in.Close()
	out, err := os.Create(decodeFlags.out)
	if err != nil {
		return errors.Wrap(err, "create predictions")
	}
	defer out.Close()

	ctx := cmd.Context()
	serveMetrics(ctx)

	rep, err := svc.Run(ctx, in, out)
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return errors.Wrap(err, "sync predictions")
	}
	logger.Info("predictions written",
		zap.String("path", decodeFlags.out),
		zap.Int("shots", rep.Shots),
		zap.Int("failed", rep.Failed),
		zap.Any("failures", rep.Failures),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "shots=%d failed=%d elapsed=%s\n", rep.Shots, rep.Failed, rep.Elapsed)
	return nil
}
