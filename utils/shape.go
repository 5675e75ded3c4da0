package utils

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/api"
	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/shapes"
)

func buildShape(ctx context.Context, cfg *Config, name string, s api.Shape, outPath string) error {
	opts := cfg.Options
	log := logrus.WithFields(logrus.Fields{"command": "shape", "shape": name})
	opts.Log = log
	opts.Progress = logProgress(log, "building")
	vol, err := api.BuildShape(ctx, s, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	pack, err := vol.MarshalPack(opts.Layout, opts.Compression)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"size": vol.Size(), "blocks": vol.BlockCount()}).Debug("built")
	return writeFile(log, outPath, pack)
}

// RunCube writes a cube of cfg.Size cells surrounded by cfg.SafeSize empty
// cells.
func RunCube(ctx context.Context, cfg *Config, outPath string) error {
	c := shapes.Cube{
		Size:       cfg.Size,
		SafeSize:   cfg.SafeSize,
		Hollow:     cfg.Hollow,
		ShellWidth: int(math.Round(cfg.ShellWidth)),
		Material:   cfg.Options.Material,
	}
	return buildShape(ctx, cfg, "cube", c, outPath)
}

// RunSphere writes a sphere of cfg.Radius centered in the smallest volume
// that holds it.
func RunSphere(ctx context.Context, cfg *Config, outPath string) error {
	if cfg.Radius <= 0 {
		return fmt.Errorf("sphere radius must be positive, got %g", cfg.Radius)
	}
	size := shapes.Sphere{Radius: cfg.Radius}.VolumeSize()
	s := shapes.CenteredSphere(size, cfg.Radius, cfg.Options.Material)
	s.Hollow = cfg.Hollow
	s.ShellWidth = cfg.ShellWidth
	return buildShape(ctx, cfg, "sphere", s, outPath)
}

// noiseShape sizes a noise fill.
type noiseShape struct {
	shapes.Noise
	size grid.Vec3i
}

func (n noiseShape) VolumeSize() grid.Vec3i { return n.size }

// RunNoise fills a volume of cfg.Size with cfg.Percent percent of random
// cells.
func RunNoise(ctx context.Context, cfg *Config, outPath string) error {
	n := noiseShape{Noise: shapes.Noise{Percent: cfg.Percent, Seed: cfg.Seed}, size: cfg.Size}
	return buildShape(ctx, cfg, "noise", n, outPath)
}
