package utils

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/api"
	"github.com/voxelsplace/voxbuild/storage"
)

// RunEdit applies the JSON edits in editsPath (see api.EditSet) to the
// volume in inPath and writes the result to outPath.
func RunEdit(ctx context.Context, cfg *Config, inPath, editsPath, outPath string) error {
	data, err := os.ReadFile(editsPath)
	if err != nil {
		return err
	}
	edits, err := api.ParseEdits(data)
	if err != nil {
		return fmt.Errorf("%s: %w", editsPath, err)
	}
	vol, err := storage.Load(inPath)
	if err != nil {
		return fmt.Errorf("failed to load input volume: %w", err)
	}
	opts := cfg.Options
	log := logrus.WithField("command", "edit")
	opts.Log = log
	opts.Progress = logProgress(log, "editing")
	if err := api.ApplyEdits(ctx, vol, edits, opts); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"replace": len(edits.Replace),
		"cells":   len(edits.Cells),
	}).Debug("edits applied")
	if err := vol.Save(outPath, opts.Layout, opts.Compression); err != nil {
		return fmt.Errorf("failed to save volume: %w", err)
	}
	if fi, err := os.Stat(outPath); err == nil {
		log.WithFields(logrus.Fields{"file": outPath, "bytes": fi.Size()}).Info("written")
	}
	return nil
}
