// Package api converts between byte blobs: GLB meshes in, .voxpack volumes
// and GLB previews out. It is shared by the CLI and the wasm bindings.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/mesh"
	"github.com/voxelsplace/voxbuild/progress"
	"github.com/voxelsplace/voxbuild/raytrace"
	"github.com/voxelsplace/voxbuild/storage"
)

// ErrNothingVoxelized is returned when the tracer produced no cuboid for a
// reason other than cancellation.
var ErrNothingVoxelized = errors.New("api: nothing to voxelize")

// Options configure the tracer, the builder and the output container.
type Options struct {
	Axes raytrace.AxisSet
	Mode raytrace.TraceMode
	// Material and FaceMaterial are assigned to every imported mesh.
	Material     uint8
	FaceMaterial uint8
	// BaseMaterial is the material of empty cells in a new volume.
	BaseMaterial uint8
	// ShellMaterial, when set, repaints the surface shell after building.
	ShellMaterial *uint8
	Transform     *mesh.Transform

	Parallel  bool
	Workers   int
	ChunkEdge int

	Layout      storage.PackLayout
	Compression storage.PackCompression

	Progress progress.Reporter
	Log      logrus.FieldLogger
}

// DefaultOptions traces all axes in Odd mode without face material and
// writes zstd-compressed raw packs.
func DefaultOptions() Options {
	return Options{
		Axes:         raytrace.AllAxes,
		Mode:         raytrace.Odd,
		FaceMaterial: mesh.Unset,
		Compression:  storage.PackCompZstd,
		Layout:       storage.LayoutRaw,
	}
}

func (o *Options) log() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

func (o *Options) builder(r progress.Reporter) *build.Builder {
	b := &build.Builder{ChunkEdge: o.ChunkEdge, Progress: r, Log: o.Log}
	if o.Parallel {
		b.Scheduler = build.Parallel{Workers: o.Workers}
	}
	return b
}

// VoxelizeMeshes traces meshes and builds a volume just large enough to
// hold the result, centered.
func VoxelizeMeshes(ctx context.Context, meshes []mesh.Mesh, opts Options) (*storage.BlockStore, error) {
	report := progress.Monotonic(opts.Progress)
	tr := &raytrace.Tracer{
		Axes:      opts.Axes,
		Mode:      opts.Mode,
		Workers:   opts.Workers,
		Transform: opts.Transform,
		Progress:  progress.Span(report, 0, 80),
		Log:       opts.Log,
	}
	cub, ok := tr.Voxelize(ctx, meshes)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNothingVoxelized
	}
	size := cub.VolumeSize()
	offset := cub.Placement(size)
	vol, err := opts.builder(progress.Span(report, 80, 100)).
		BuildVolume(ctx, size, opts.BaseMaterial, opts.ShellMaterial, cub.CellAction(offset))
	if err != nil {
		return nil, fmt.Errorf("build volume: %w", err)
	}
	opts.log().WithFields(logrus.Fields{
		"meshes": len(meshes),
		"cuboid": cub.Size,
		"volume": size,
		"offset": offset,
		"blocks": vol.BlockCount(),
	}).Info("voxelized")
	return vol, nil
}

// VoxelizeGLB decodes a binary glTF, voxelizes every mesh node with
// opts.Material and opts.FaceMaterial and returns the volume as .voxpack
// bytes.
func VoxelizeGLB(ctx context.Context, glb []byte, opts Options) ([]byte, error) {
	meshes, err := mesh.DecodeGLBBytes(glb)
	if err != nil {
		return nil, err
	}
	for i := range meshes {
		meshes[i].Material = opts.Material
		meshes[i].FaceMaterial = opts.FaceMaterial
	}
	vol, err := VoxelizeMeshes(ctx, meshes, opts)
	if err != nil {
		return nil, err
	}
	return vol.MarshalPack(opts.Layout, opts.Compression)
}

// Shape is a procedural generator that knows the volume it needs.
type Shape interface {
	VolumeSize() grid.Vec3i
	Action() build.CellAction
}

// BuildShape fills a new volume with s.
func BuildShape(ctx context.Context, s Shape, opts Options) (*storage.BlockStore, error) {
	return BuildAction(ctx, s.VolumeSize(), s.Action(), opts)
}

// BuildAction fills a new volume of at least size with action.
func BuildAction(ctx context.Context, size grid.Vec3i, action build.CellAction, opts Options) (*storage.BlockStore, error) {
	vol, err := opts.builder(opts.Progress).BuildVolume(ctx, size, opts.BaseMaterial, opts.ShellMaterial, action)
	if err != nil {
		return nil, fmt.Errorf("build volume: %w", err)
	}
	return vol, nil
}

// ShapeToVoxpack builds s and returns the .voxpack bytes.
func ShapeToVoxpack(ctx context.Context, s Shape, opts Options) ([]byte, error) {
	vol, err := BuildShape(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	return vol.MarshalPack(opts.Layout, opts.Compression)
}

// VoxpackToGLB meshes the solid cells of a .voxpack greedily and returns a
// binary glTF colored with pal (nil for the default palette).
func VoxpackToGLB(pack []byte, pal *mesh.Palette) ([]byte, error) {
	vol, err := storage.UnmarshalBlockStore(pack)
	if err != nil {
		return nil, err
	}
	surface, err := mesh.ExtractSurface(vol)
	if err != nil {
		return nil, err
	}
	return mesh.EncodeGLB(surface, pal)
}
