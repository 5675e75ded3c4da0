package shapes

import (
	"cmp"
	"context"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
)

func readAll(t *testing.T, s grid.VolumeStorage) *grid.GridCache {
	t.Helper()
	c := &grid.GridCache{}
	require.NoError(t, s.ReadRange(c, grid.ContentAndMaterial, 0, grid.Splat(0), s.Size().Sub(grid.Splat(1))))
	return c
}

func TestCubeFillsRequestedBounds(t *testing.T) {
	for _, size := range []grid.Vec3i{grid.V3(5, 9, 3), grid.Splat(8), grid.V3(17, 2, 30)} {
		cube := Cube{Size: size, Material: 4}
		vol, err := build.BuildVolume(context.Background(), cube.VolumeSize(), 1, nil, cube.Action())
		require.NoError(t, err)
		c := readAll(t, vol)
		vs := vol.Size()
		for z := 0; z < vs.Z; z++ {
			for y := 0; y < vs.Y; y++ {
				for x := 0; x < vs.X; x++ {
					p := grid.V3(x, y, z)
					if x < size.X && y < size.Y && z < size.Z {
						require.Equal(t, uint8(255), c.Content(p), "inside %v", p)
						require.Equal(t, uint8(4), c.Material(p))
					} else {
						require.Zero(t, c.Content(p), "outside %v", p)
						require.Equal(t, uint8(1), c.Material(p))
					}
				}
			}
		}
	}
}

func TestCubeSafeSizeAndHollow(t *testing.T) {
	cube := Cube{Size: grid.Splat(10), SafeSize: 3, Hollow: true, ShellWidth: 2, Material: 7}
	assert.Equal(t, grid.Splat(16), cube.VolumeSize())
	assert.Equal(t, grid.Box{Min: grid.Splat(3), Max: grid.Splat(12)}, cube.Bounds())

	a := cube.Action()
	size := cube.VolumeSize()
	at := func(x, y, z int) uint8 {
		_, c := a(size, grid.V3(x, y, z), 0, 0)
		return c
	}
	assert.Zero(t, at(2, 5, 5), "margin")
	assert.Equal(t, uint8(255), at(3, 5, 5), "shell")
	assert.Equal(t, uint8(255), at(4, 5, 5), "shell")
	assert.Zero(t, at(5, 5, 5), "hollow core")
	assert.Equal(t, uint8(255), at(12, 12, 12))
	assert.Zero(t, at(13, 5, 5))
}

func TestBoxInclusive(t *testing.T) {
	a := Box{Min: grid.V3(1, 2, 3), Max: grid.V3(1, 2, 3), Material: 9}.Action()
	m, c := a(grid.Splat(8), grid.V3(1, 2, 3), 0, 0)
	assert.Equal(t, uint8(9), m)
	assert.Equal(t, uint8(255), c)
	_, c = a(grid.Splat(8), grid.V3(1, 2, 4), 0, 0)
	assert.Zero(t, c)
}

func TestSphereFalloff(t *testing.T) {
	const r = 10.0
	s := Sphere{Center: mgl64.Vec3{16, 16, 16}, Radius: r, Material: 2}
	a := s.Action()
	size := grid.Splat(32)
	type sample struct {
		d float64
		c uint8
	}
	var boundary []sample
	for z := 0; z < 32; z++ {
		for y := 0; y < 32; y++ {
			for x := 0; x < 32; x++ {
				p := grid.V3(x, y, z)
				d := mgl64.Vec3{float64(x) + 0.5, float64(y) + 0.5, float64(z) + 0.5}.Sub(s.Center).Len()
				m, c := a(size, p, 0, 0)
				switch {
				case d < r-1:
					require.Equal(t, uint8(255), c, "d=%v", d)
					require.Equal(t, uint8(2), m)
				case d > r+1:
					require.Zero(t, c, "d=%v", d)
					require.Zero(t, m)
				default:
					boundary = append(boundary, sample{d, c})
				}
			}
		}
	}
	require.NotEmpty(t, boundary)
	slices.SortFunc(boundary, func(a, b sample) int { return cmp.Compare(a.d, b.d) })
	for i := 1; i < len(boundary); i++ {
		a, b := boundary[i-1], boundary[i]
		if a.d < b.d {
			assert.GreaterOrEqual(t, a.c, b.c, "monotone: d=%v c=%d vs d=%v c=%d", a.d, a.c, b.d, b.c)
		}
	}
	_, c := a(size, grid.V3(16, 16, 16), 0, 0)
	assert.Equal(t, uint8(255), c)
}

func TestSphereExactSurfaceIsHalf(t *testing.T) {
	assert.InDelta(t, 127.5, occupancy(5, 5), 1e-9)
	assert.Equal(t, 255.0, occupancy(5, 3))
	assert.Equal(t, 0.0, occupancy(5, 7))
}

func TestHollowSphere(t *testing.T) {
	s := Sphere{Center: mgl64.Vec3{16, 16, 16}, Radius: 12, Hollow: true, ShellWidth: 4, Material: 5}
	a := s.Action()
	size := grid.Splat(32)
	_, c := a(size, grid.V3(15, 15, 15), 0, 0)
	assert.Zero(t, c, "center is carved out")
	_, c = a(size, grid.V3(15, 15, 15+10), 0, 0)
	assert.Equal(t, uint8(255), c, "d=10 lies inside the shell")
	_, c = a(size, grid.V3(15, 15, 15+14), 0, 0)
	assert.Zero(t, c, "outside the outer sphere")
}

func TestSphereVolumeSize(t *testing.T) {
	assert.Equal(t, grid.Splat(32), Sphere{Radius: 12}.VolumeSize())
	assert.Equal(t, grid.Splat(8), Sphere{Radius: 1}.VolumeSize())
	cs := CenteredSphere(grid.Splat(32), 5, 1)
	assert.Equal(t, mgl64.Vec3{16, 16, 16}, cs.Center)
}

func TestNoiseIsPureAndRoughlyProportional(t *testing.T) {
	n := Noise{Percent: 30, Seed: 42, Materials: []uint8{3, 4}}
	a, b := n.Action(), n.Action()
	size := grid.Splat(32)
	filled := 0
	for z := 0; z < 32; z++ {
		for y := 0; y < 32; y++ {
			for x := 0; x < 32; x++ {
				p := grid.V3(x, y, z)
				m1, c1 := a(size, p, 0, 0)
				m2, c2 := b(size, p, 0, 0)
				require.Equal(t, m1, m2)
				require.Equal(t, c1, c2)
				if c1 > 0 {
					filled++
					assert.Contains(t, []uint8{3, 4}, m1)
				}
			}
		}
	}
	frac := float64(filled) / (32 * 32 * 32)
	assert.InDelta(t, 0.30, frac, 0.02)

	other := Noise{Percent: 30, Seed: 43}.Action()
	diff := 0
	for x := 0; x < 64; x++ {
		_, c1 := a(size, grid.V3(x, 0, 0), 0, 0)
		_, c2 := other(size, grid.V3(x, 0, 0), 0, 0)
		if c1 != c2 {
			diff++
		}
	}
	assert.Positive(t, diff)
}

func TestNoiseExtremes(t *testing.T) {
	none := Noise{Percent: 0}.Action()
	all := Noise{Percent: 100}.Action()
	for x := 0; x < 100; x++ {
		_, c := none(grid.Splat(8), grid.V3(x, 1, 2), 0, 0)
		assert.Zero(t, c)
		m, c := all(grid.Splat(8), grid.V3(x, 1, 2), 0, 0)
		assert.Equal(t, uint8(255), c)
		assert.True(t, m >= 1 && m <= 63)
	}
}

func TestMaterialEdits(t *testing.T) {
	size := grid.Splat(8)
	m, c := SetMaterial(6)(size, grid.Vec3i{}, 1, 0)
	assert.Equal(t, uint8(1), m, "empty cells keep material")
	assert.Zero(t, c)
	m, _ = SetMaterial(6)(size, grid.Vec3i{}, 1, 10)
	assert.Equal(t, uint8(6), m)

	m, c = ReplaceMaterial(2, 3)(size, grid.Vec3i{}, 2, 99)
	assert.Equal(t, uint8(3), m)
	assert.Equal(t, uint8(99), c)
	m, _ = ReplaceMaterial(2, 3)(size, grid.Vec3i{}, 4, 99)
	assert.Equal(t, uint8(4), m)

	e := Edits{grid.V3(1, 1, 1): {Material: 8, Content: 128}}
	m, c = e.Action()(size, grid.V3(1, 1, 1), 0, 0)
	assert.Equal(t, Cell{Material: 8, Content: 128}, Cell{Material: m, Content: c})

	chained := Chain(e.Action(), ReplaceMaterial(8, 9))
	m, _ = chained(size, grid.V3(1, 1, 1), 0, 0)
	assert.Equal(t, uint8(9), m)
}

func TestSphereBuildMatchesAction(t *testing.T) {
	s := CenteredSphere(grid.Splat(16), 5.5, 3)
	vol, err := (&build.Builder{Scheduler: build.Parallel{}, ChunkEdge: 8}).BuildVolume(context.Background(), grid.Splat(16), 0, nil, s.Action())
	require.NoError(t, err)
	c := readAll(t, vol)
	a := s.Action()
	for i := 0; i < 16; i++ {
		p := grid.V3(i, 8, 8)
		_, want := a(grid.Splat(16), p, 0, 0)
		assert.Equal(t, want, c.Content(p))
	}
}
