package mesh

import (
	"fmt"

	"github.com/voxelsplace/voxbuild/grid"
)

// SolidThreshold is the content at or above which a cell counts as solid
// when extracting a surface.
const SolidThreshold = 128

// Vertex is a surface vertex in cell units.
type Vertex struct {
	Position [3]float32
	Material uint8
}

// Surface is an indexed triangle list of quads on the boundary of the solid
// cells, merged greedily per material.
type Surface struct {
	Vertices []Vertex
	Indices  []uint32
}

// Quads returns the number of merged faces.
func (s *Surface) Quads() int { return len(s.Indices) / 6 }

type faceDir struct {
	axis   int
	sign   int
	u, v   int
	du, dv [3]int
}

var faceDirs = []faceDir{
	{0, 1, 1, 2, [3]int{0, 1, 0}, [3]int{0, 0, 1}},
	{0, -1, 1, 2, [3]int{0, 1, 0}, [3]int{0, 0, 1}},
	{1, 1, 0, 2, [3]int{1, 0, 0}, [3]int{0, 0, 1}},
	{1, -1, 0, 2, [3]int{1, 0, 0}, [3]int{0, 0, 1}},
	{2, 1, 0, 1, [3]int{1, 0, 0}, [3]int{0, 1, 0}},
	{2, -1, 0, 1, [3]int{1, 0, 0}, [3]int{0, 1, 0}},
}

// ExtractSurface reads the whole volume and meshes the faces between solid
// and non-solid cells. Faces on the volume border are included.
func ExtractSurface(s grid.VolumeStorage) (*Surface, error) {
	size := s.Size()
	cache := &grid.GridCache{}
	if err := s.ReadRange(cache, grid.ContentAndMaterial, 0, grid.Vec3i{}, size.Sub(grid.Splat(1))); err != nil {
		return nil, fmt.Errorf("read volume: %w", err)
	}
	return surfaceOf(cache), nil
}

func surfaceOf(cache *grid.GridCache) *Surface {
	size := cache.Size()
	dims := [3]int{size.X, size.Y, size.Z}
	solid := func(p [3]int) bool {
		if p[0] < 0 || p[1] < 0 || p[2] < 0 || p[0] >= dims[0] || p[1] >= dims[1] || p[2] >= dims[2] {
			return false
		}
		return cache.Content(grid.Vec3i{X: p[0], Y: p[1], Z: p[2]}) >= SolidThreshold
	}

	out := &Surface{}
	for _, dir := range faceDirs {
		du, dv := dims[dir.u], dims[dir.v]
		// mask holds material+1 for exposed faces, 0 elsewhere.
		mask := make([]int16, du*dv)
		visited := make([]bool, du*dv)
		for slice := 0; slice < dims[dir.axis]; slice++ {
			clear(mask)
			clear(visited)
			for u := 0; u < du; u++ {
				for v := 0; v < dv; v++ {
					var pos [3]int
					pos[dir.u], pos[dir.v], pos[dir.axis] = u, v, slice
					if !solid(pos) {
						continue
					}
					adj := pos
					adj[dir.axis] += dir.sign
					if !solid(adj) {
						m := cache.Material(grid.Vec3i{X: pos[0], Y: pos[1], Z: pos[2]})
						mask[u*dv+v] = int16(m) + 1
					}
				}
			}

			for u := 0; u < du; u++ {
				for v := 0; v < dv; {
					k := mask[u*dv+v]
					if k == 0 || visited[u*dv+v] {
						v++
						continue
					}
					width := 1
					for w := v + 1; w < dv && mask[u*dv+w] == k && !visited[u*dv+w]; w++ {
						width++
					}
					height := 1
				grow:
					for h := u + 1; h < du; h++ {
						for w := v; w < v+width; w++ {
							if mask[h*dv+w] != k || visited[h*dv+w] {
								break grow
							}
						}
						height++
					}
					for hu := u; hu < u+height; hu++ {
						for hv := v; hv < v+width; hv++ {
							visited[hu*dv+hv] = true
						}
					}
					out.addQuad(dir, slice, u, v, width, height, uint8(k-1))
					v += width
				}
			}
		}
	}
	return out
}

func (s *Surface) addQuad(dir faceDir, slice, u, v, w, h int, material uint8) {
	var base [3]float32
	base[dir.axis] = float32(slice)
	if dir.sign > 0 {
		base[dir.axis]++
	}
	base[dir.u] = float32(u)
	base[dir.v] = float32(v)

	offset := func(a, b int) [3]float32 {
		p := base
		for i := 0; i < 3; i++ {
			p[i] += float32(dir.du[i]*a + dir.dv[i]*b)
		}
		return p
	}
	verts := [4]Vertex{
		{Position: base, Material: material},
		{Position: offset(h, 0), Material: material},
		{Position: offset(h, w), Material: material},
		{Position: offset(0, w), Material: material},
	}
	// du x dv points along +axis for X and Z and along -axis for Y.
	if (dir.sign < 0) != (dir.axis == 1) {
		verts[1], verts[3] = verts[3], verts[1]
	}

	baseIdx := uint32(len(s.Vertices))
	s.Vertices = append(s.Vertices, verts[:]...)
	s.Indices = append(s.Indices, baseIdx, baseIdx+1, baseIdx+2, baseIdx, baseIdx+2, baseIdx+3)
}
