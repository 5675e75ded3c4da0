// Package mesh holds triangle meshes: the input of the ray tracer (loaded
// from glTF or built in code) and the greedy surface meshes exported back
// to glTF for preview.
package mesh

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Unset is the material value meaning "no material". A mesh whose Material
// is Unset cuts its volume out of the meshes traced before it; a
// FaceMaterial of Unset disables surface bleed.
const Unset uint8 = 0xFF

var ErrNoTriangles = errors.New("mesh: no triangles")

// Triangle is three positions. Counter-clockwise winding seen from outside
// makes the normal point out of the solid.
type Triangle [3]mgl64.Vec3

// Normal is the unnormalized face normal (B-A)x(C-A).
func (t Triangle) Normal() mgl64.Vec3 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
}

// Degenerate reports a zero-area triangle.
func (t Triangle) Degenerate() bool {
	return t.Normal().LenSqr() == 0
}

// Mesh is one traceable part of a model.
type Mesh struct {
	Name         string
	Triangles    []Triangle
	Material     uint8
	FaceMaterial uint8
}

// New returns a mesh with the given material and no face material.
func New(name string, tris []Triangle, material uint8) Mesh {
	return Mesh{Name: name, Triangles: tris, Material: material, FaceMaterial: Unset}
}

// CutOut reports whether the mesh subtracts volume instead of adding it.
func (m *Mesh) CutOut() bool { return m.Material == Unset }

// Bounds returns the axis aligned bounds of the triangles.
func (m *Mesh) Bounds() (lo, hi mgl64.Vec3, ok bool) {
	if len(m.Triangles) == 0 {
		return lo, hi, false
	}
	lo = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, t := range m.Triangles {
		for _, p := range t {
			for i := 0; i < 3; i++ {
				lo[i] = math.Min(lo[i], p[i])
				hi[i] = math.Max(hi[i], p[i])
			}
		}
	}
	return lo, hi, true
}

// Bounds returns the union of the bounds of all meshes.
func Bounds(meshes []Mesh) (lo, hi mgl64.Vec3, ok bool) {
	for i := range meshes {
		l, h, mok := meshes[i].Bounds()
		if !mok {
			continue
		}
		if !ok {
			lo, hi, ok = l, h, true
			continue
		}
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], l[k])
			hi[k] = math.Max(hi[k], h[k])
		}
	}
	return lo, hi, ok
}

// TriangleCount sums the triangles of all meshes.
func TriangleCount(meshes []Mesh) int {
	n := 0
	for i := range meshes {
		n += len(meshes[i].Triangles)
	}
	return n
}

// Box returns the 12 outward-facing triangles of the box [lo, hi].
func Box(lo, hi mgl64.Vec3) []Triangle {
	var c [8]mgl64.Vec3
	for i := range c {
		c[i] = lo
		if i&1 != 0 {
			c[i][0] = hi[0]
		}
		if i&2 != 0 {
			c[i][1] = hi[1]
		}
		if i&4 != 0 {
			c[i][2] = hi[2]
		}
	}
	quads := [6][4]int{
		{0, 4, 6, 2}, // -X
		{1, 3, 7, 5}, // +X
		{0, 1, 5, 4}, // -Y
		{2, 6, 7, 3}, // +Y
		{0, 2, 3, 1}, // -Z
		{4, 5, 7, 6}, // +Z
	}
	tris := make([]Triangle, 0, 12)
	for _, q := range quads {
		tris = append(tris,
			Triangle{c[q[0]], c[q[1]], c[q[2]]},
			Triangle{c[q[0]], c[q[2]], c[q[3]]},
		)
	}
	return tris
}

// Cube returns a box of the given side centered at the origin.
func Cube(side float64) []Triangle {
	h := side / 2
	return Box(mgl64.Vec3{-h, -h, -h}, mgl64.Vec3{h, h, h})
}
