package raytrace

import (
	"cmp"
	"slices"

	"github.com/voxelsplace/voxbuild/mesh"
)

// Face tells whether a ray enters or leaves the solid at a hit.
type Face uint8

const (
	Undefined Face = iota
	Nearside
	Farside
)

func (f Face) String() string {
	return [...]string{"undefined", "nearside", "farside"}[f]
}

// RayHit is one ray/triangle crossing. Position is along the trace axis.
type RayHit struct {
	Position float64
	Face     Face
	Ray      int
}

// projected is a triangle seen down one trace axis: 2D vertices in the
// (u, v) plane, the axis coordinate of each vertex and the projected
// bounds. Vertices are ordered counterclockwise.
type projected struct {
	u, v, a    [3]float64
	face       Face
	minU, maxU float64
	minV, maxV float64
}

// project drops triangles that are parallel to the axis or have no area.
func project(t mesh.Triangle, axis Axis) (projected, bool) {
	ai, ui, vi := axis.swizzle()
	var p projected
	for k := 0; k < 3; k++ {
		p.u[k], p.v[k], p.a[k] = t[k][ui], t[k][vi], t[k][ai]
	}
	area := (p.u[1]-p.u[0])*(p.v[2]-p.v[0]) - (p.v[1]-p.v[0])*(p.u[2]-p.u[0])
	switch {
	case area == 0:
		return p, false
	case area < 0:
		// normal points against the ray
		p.face = Nearside
		p.u[1], p.u[2] = p.u[2], p.u[1]
		p.v[1], p.v[2] = p.v[2], p.v[1]
		p.a[1], p.a[2] = p.a[2], p.a[1]
	default:
		p.face = Farside
	}
	p.minU, p.maxU = min(p.u[0], p.u[1], p.u[2]), max(p.u[0], p.u[1], p.u[2])
	p.minV, p.maxV = min(p.v[0], p.v[1], p.v[2]), max(p.v[0], p.v[1], p.v[2])
	return p, true
}

// edge evaluates the edge function of a->b at (pu, pv). Endpoints are put in
// a canonical order first so the two triangles sharing an edge compute
// exactly negated values.
func edge(au, av, bu, bv, pu, pv float64) float64 {
	if au > bu || (au == bu && av > bv) {
		return -((au-bu)*(pv-bv) - (av-bv)*(pu-bu))
	}
	return (bu-au)*(pv-av) - (bv-av)*(pu-au)
}

// owns reports whether a point exactly on the edge a->b belongs to the
// triangle on its left. This is the top-left fill rule for the
// counterclockwise (u, v) plane.
func owns(au, av, bu, bv float64) bool {
	du, dv := bu-au, bv-av
	return dv > 0 || (dv == 0 && du < 0)
}

func inside(w float64, au, av, bu, bv float64) bool {
	return w > 0 || (w == 0 && owns(au, av, bu, bv))
}

// intersect returns the axis coordinate where the ray through (pu, pv)
// crosses the triangle.
func (p *projected) intersect(pu, pv float64) (float64, bool) {
	if pu < p.minU || pu > p.maxU || pv < p.minV || pv > p.maxV {
		return 0, false
	}
	w0 := edge(p.u[1], p.v[1], p.u[2], p.v[2], pu, pv)
	if !inside(w0, p.u[1], p.v[1], p.u[2], p.v[2]) {
		return 0, false
	}
	w1 := edge(p.u[2], p.v[2], p.u[0], p.v[0], pu, pv)
	if !inside(w1, p.u[2], p.v[2], p.u[0], p.v[0]) {
		return 0, false
	}
	w2 := edge(p.u[0], p.v[0], p.u[1], p.v[1], pu, pv)
	if !inside(w2, p.u[0], p.v[0], p.u[1], p.v[1]) {
		return 0, false
	}
	sum := w0 + w1 + w2
	if sum <= 0 {
		return 0, false
	}
	return (w0*p.a[0] + w1*p.a[1] + w2*p.a[2]) / sum, true
}

// sortHits orders hits by position, then ray, with entries before exits.
func sortHits(hits []RayHit) {
	slices.SortFunc(hits, func(a, b RayHit) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Ray, b.Ray); c != 0 {
			return c
		}
		return cmp.Compare(a.Face, b.Face)
	})
}
