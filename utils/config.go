package utils

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/voxelsplace/voxbuild/api"
	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/mesh"
	"github.com/voxelsplace/voxbuild/raytrace"
	"github.com/voxelsplace/voxbuild/storage"
)

// Config is the typed view of the command configuration.
type Config struct {
	LogLevel logrus.Level
	Options  api.Options
	Palette  *mesh.Palette

	// Shape generators.
	Size       grid.Vec3i
	SafeSize   int
	Hollow     bool
	ShellWidth float64
	Radius     float64
	Percent    float64
	Seed       uint64
}

// LoadConfig reads a Config from v. Face and shell materials of -1 mean
// unset; 255 is the unset marker itself and is rejected there. A material
// of 255 on voxelize makes every imported mesh a cut-out, which leaves
// nothing to voxelize.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{Options: api.DefaultOptions()}
	var err error

	if cfg.LogLevel, err = logrus.ParseLevel(v.GetString("log-level")); err != nil {
		return nil, err
	}
	o := &cfg.Options
	if o.Axes, err = raytrace.ParseAxisSet(v.GetString("axes")); err != nil {
		return nil, err
	}
	if o.Mode, err = raytrace.ParseTraceMode(v.GetString("mode")); err != nil {
		return nil, err
	}
	if o.Material, err = material(v, "material", false); err != nil {
		return nil, err
	}
	if o.FaceMaterial, err = material(v, "face-material", true); err != nil {
		return nil, err
	}
	if o.BaseMaterial, err = material(v, "base-material", false); err != nil {
		return nil, err
	}
	if shell, err := material(v, "shell-material", true); err != nil {
		return nil, err
	} else if shell != mesh.Unset {
		o.ShellMaterial = &shell
	}

	tf := mesh.Identity()
	if tf.Scale, err = vec3(v, "scale"); err != nil {
		return nil, err
	}
	if tf.Rotation, err = vec3(v, "rotation"); err != nil {
		return nil, err
	}
	if tf.Translation, err = vec3(v, "translation"); err != nil {
		return nil, err
	}
	if tf != mesh.Identity() {
		o.Transform = &tf
	}

	o.Parallel = v.GetBool("parallel")
	o.Workers = v.GetInt("workers")
	o.ChunkEdge = v.GetInt("chunk-edge")
	if o.ChunkEdge < 0 {
		return nil, fmt.Errorf("chunk-edge must not be negative, got %d", o.ChunkEdge)
	}
	if o.Compression, err = storage.ParsePackCompression(v.GetString("compression")); err != nil {
		return nil, err
	}
	if o.Layout, err = storage.ParsePackLayout(v.GetString("layout")); err != nil {
		return nil, err
	}
	if cfg.Palette, err = mesh.NewPalette(v.GetStringSlice("palette")); err != nil {
		return nil, err
	}

	size := v.GetIntSlice("size")
	if len(size) != 3 {
		return nil, fmt.Errorf("size needs 3 values, got %v", size)
	}
	cfg.Size = grid.V3(size[0], size[1], size[2])
	cfg.SafeSize = v.GetInt("safe-size")
	cfg.Hollow = v.GetBool("hollow")
	cfg.ShellWidth = v.GetFloat64("shell-width")
	cfg.Radius = v.GetFloat64("radius")
	cfg.Percent = v.GetFloat64("percent")
	if cfg.Seed, err = cast.ToUint64E(v.Get("seed")); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return cfg, nil
}

func material(v *viper.Viper, name string, allowUnset bool) (uint8, error) {
	m := v.GetInt(name)
	if allowUnset {
		switch m {
		case -1:
			return mesh.Unset, nil
		case int(mesh.Unset):
			return 0, fmt.Errorf("%s %d is reserved, use -1 to leave it unset", name, m)
		}
	}
	if m < 0 || m > 255 {
		return 0, fmt.Errorf("%s must be in [0, 255], got %d", name, m)
	}
	return uint8(m), nil
}

func vec3(v *viper.Viper, name string) (mgl64.Vec3, error) {
	parts := v.GetStringSlice(name)
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%s needs 3 values, got %v", name, parts)
	}
	var out mgl64.Vec3
	for i, p := range parts {
		f, err := cast.ToFloat64E(p)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("%s: %w", name, err)
		}
		out[i] = f
	}
	return out, nil
}
