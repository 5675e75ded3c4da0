// Package utils implements the voxbuild commands on top of package api:
// configuration, file handling and logging.
package utils

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/api"
	"github.com/voxelsplace/voxbuild/progress"
)

// logProgress logs every tenth percent.
func logProgress(log logrus.FieldLogger, what string) progress.Reporter {
	return progress.ReporterFunc(func(p int) {
		if p%10 == 0 {
			log.WithField("percent", p).Debug(what)
		}
	})
}

// writeFile writes data and logs its size, like every command that
// produces a file.
func writeFile(log logrus.FieldLogger, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": path, "bytes": len(data)}).Info("written")
	return nil
}

// RunVoxelize voxelizes every mesh of the GLB file inPath and saves the
// volume to outPath.
func RunVoxelize(ctx context.Context, cfg *Config, inPath, outPath string) error {
	glb, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	opts := cfg.Options
	log := logrus.WithField("command", "voxelize")
	opts.Log = log
	opts.Progress = logProgress(log, "voxelizing")
	pack, err := api.VoxelizeGLB(ctx, glb, opts)
	if err != nil {
		return fmt.Errorf("voxelize %s: %w", inPath, err)
	}
	return writeFile(log, outPath, pack)
}
