package utils

import (
	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/mesh"
	"github.com/voxelsplace/voxbuild/storage"
)

// RunExport meshes the solid surface of the volume in inPath and writes it
// as a binary glTF colored with cfg.Palette.
func RunExport(cfg *Config, inPath, outPath string) error {
	vol, err := storage.Load(inPath)
	if err != nil {
		return err
	}
	surface, err := mesh.ExtractSurface(vol)
	if err != nil {
		return err
	}
	glb, err := mesh.EncodeGLB(surface, cfg.Palette)
	if err != nil {
		return err
	}
	log := logrus.WithField("command", "export")
	log.WithFields(logrus.Fields{"quads": surface.Quads(), "vertices": len(surface.Vertices)}).Debug("surface extracted")
	return writeFile(log, outPath, glb)
}
