package api

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/mesh"
	"github.com/voxelsplace/voxbuild/progress"
	"github.com/voxelsplace/voxbuild/shapes"
	"github.com/voxelsplace/voxbuild/storage"
)

func readAll(t *testing.T, vol grid.VolumeStorage) *grid.GridCache {
	t.Helper()
	cache := &grid.GridCache{}
	require.NoError(t, vol.ReadRange(cache, grid.ContentAndMaterial, 0, grid.Vec3i{}, vol.Size().Sub(grid.Splat(1))))
	return cache
}

func cubeGLB(t *testing.T) []byte {
	t.Helper()
	data, err := mesh.EncodeMeshesGLB([]mesh.Mesh{mesh.New("cube", mesh.Cube(10), 0)})
	require.NoError(t, err)
	return data
}

func TestVoxelizeGLB(t *testing.T) {
	opts := DefaultOptions()
	opts.Material = 6
	pack, err := VoxelizeGLB(context.Background(), cubeGLB(t), opts)
	require.NoError(t, err)

	vol, err := storage.UnmarshalBlockStore(pack)
	require.NoError(t, err)
	assert.Equal(t, grid.Splat(16), vol.Size())

	cache := readAll(t, vol)
	assert.Equal(t, uint8(255), cache.Content(grid.Splat(3)))
	assert.Equal(t, uint8(6), cache.Material(grid.Splat(3)))
	assert.Equal(t, uint8(255), cache.Content(grid.Splat(12)))
	assert.Zero(t, cache.Content(grid.Splat(13)))
	assert.Zero(t, cache.Content(grid.Splat(2)))

	info, err := Info(pack)
	require.NoError(t, err)
	assert.Equal(t, grid.Box{Min: grid.Splat(3), Max: grid.Splat(12)}, info.Bounds)
	assert.False(t, info.Empty)
	assert.Equal(t, storage.PackCompZstd, info.Compression)
	assert.Equal(t, vol.Checksum(), info.Checksum)
	assert.Contains(t, info.String(), "size (16,16,16)")
}

func TestVoxelizeParallelMatchesSequential(t *testing.T) {
	opts := DefaultOptions()
	opts.Transform = &mesh.Transform{Scale: mgl64.Vec3{1.5, 2, 1}, Rotation: mgl64.Vec3{0, 45, 10}}
	seq, err := VoxelizeGLB(context.Background(), cubeGLB(t), opts)
	require.NoError(t, err)
	opts.Parallel, opts.Workers, opts.ChunkEdge = true, 4, 8
	par, err := VoxelizeGLB(context.Background(), cubeGLB(t), opts)
	require.NoError(t, err)
	assert.Equal(t, seq, par)
}

func TestVoxelizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := VoxelizeGLB(ctx, cubeGLB(t), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVoxelizeNothing(t *testing.T) {
	_, err := VoxelizeMeshes(context.Background(), []mesh.Mesh{{Name: "empty"}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrNothingVoxelized)
}

func TestVoxelizeProgressSpansPhases(t *testing.T) {
	var got []int
	opts := DefaultOptions()
	opts.Workers = 1
	opts.Progress = progress.ReporterFunc(func(p int) { got = append(got, p) })
	_, err := VoxelizeMeshes(context.Background(), []mesh.Mesh{mesh.New("c", mesh.Cube(4), 1)}, opts)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 100, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestShapeToVoxpackAndGLB(t *testing.T) {
	cube := shapes.Cube{Size: grid.Splat(4), SafeSize: 2, Material: 9}
	pack, err := ShapeToVoxpack(context.Background(), cube, DefaultOptions())
	require.NoError(t, err)

	glb, err := VoxpackToGLB(pack, nil)
	require.NoError(t, err)
	meshes, err := mesh.DecodeGLBBytes(glb)
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Len(t, meshes[0].Triangles, 12, "one merged quad per side")

	lo, hi, ok := meshes[0].Bounds()
	require.True(t, ok)
	assert.Equal(t, [3]float64{2, 2, 2}, [3]float64(lo))
	assert.Equal(t, [3]float64{6, 6, 6}, [3]float64(hi))
}

func TestSphereShape(t *testing.T) {
	s := shapes.CenteredSphere(grid.Splat(16), 5, 2)
	vol, err := BuildShape(context.Background(), s, DefaultOptions())
	require.NoError(t, err)
	cache := readAll(t, vol)
	assert.Equal(t, uint8(255), cache.Content(grid.Splat(8)))
	assert.Zero(t, cache.Content(grid.Splat(0)))
}

func TestEditVoxpack(t *testing.T) {
	cube := shapes.Cube{Size: grid.Splat(8), Material: 1}
	pack, err := ShapeToVoxpack(context.Background(), cube, DefaultOptions())
	require.NoError(t, err)

	edits := []byte(`{
		"replace": [{"from": 1, "to": 4}],
		"cells": [
			{"x": 0, "y": 0, "z": 0, "material": 7, "content": 0},
			{"x": 99, "y": 0, "z": 0, "material": 7, "content": 255}
		]
	}`)
	out, err := EditVoxpack(context.Background(), pack, edits, DefaultOptions())
	require.NoError(t, err)
	vol, err := storage.UnmarshalBlockStore(out)
	require.NoError(t, err)
	cache := readAll(t, vol)
	assert.Equal(t, uint8(4), cache.Material(grid.V3(3, 3, 3)))
	assert.Equal(t, uint8(255), cache.Content(grid.V3(3, 3, 3)))
	assert.Zero(t, cache.Content(grid.V3(0, 0, 0)))
	assert.Equal(t, uint8(7), cache.Material(grid.V3(0, 0, 0)))

	_, err = EditVoxpack(context.Background(), pack, []byte(`{"cells": 3}`), DefaultOptions())
	assert.Error(t, err)
}

func TestEditRepaintAndShell(t *testing.T) {
	vol, err := BuildShape(context.Background(), shapes.Cube{Size: grid.Splat(6), SafeSize: 1, Material: 1}, DefaultOptions())
	require.NoError(t, err)
	paint, shell := uint8(3), uint8(8)
	opts := DefaultOptions()
	opts.ShellMaterial = &shell
	require.NoError(t, ApplyEdits(context.Background(), vol, &EditSet{Material: &paint}, opts))
	cache := readAll(t, vol)
	assert.Equal(t, uint8(8), cache.Material(grid.V3(1, 3, 3)), "surface cell")
	assert.Equal(t, uint8(3), cache.Material(grid.V3(3, 3, 3)), "interior cell")
}
