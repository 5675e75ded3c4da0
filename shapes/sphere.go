package shapes

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
)

// Sphere draws a ball with a one-cell smooth falloff at its surface.
// Distances are measured from cell centers.
type Sphere struct {
	Center     mgl64.Vec3
	Radius     float64
	Hollow     bool
	ShellWidth float64
	Material   uint8
}

// CenteredSphere returns a sphere of the given radius in the middle of a
// volume of size.
func CenteredSphere(size grid.Vec3i, radius float64, material uint8) Sphere {
	return Sphere{
		Center:   mgl64.Vec3{float64(size.X) / 2, float64(size.Y) / 2, float64(size.Z) / 2},
		Radius:   radius,
		Material: material,
	}
}

// VolumeSize is the smallest valid volume holding a sphere of this radius
// centered in it, with room for the falloff.
func (s Sphere) VolumeSize() grid.Vec3i {
	return grid.RoundUpSize(grid.Splat(int(math.Ceil(2*s.Radius)) + 2))
}

// occupancy maps a signed distance to the surface onto [0, 255].
func occupancy(radius, d float64) float64 {
	v := mgl64.Clamp(radius-d, -1, 1)
	return (v + 1) / 2 * 255
}

func (s Sphere) Action() build.CellAction {
	inner := s.Radius - s.ShellWidth
	hollow := s.Hollow && s.ShellWidth > 0
	return func(_, p grid.Vec3i, m, _ uint8) (uint8, uint8) {
		cell := mgl64.Vec3{float64(p.X) + 0.5, float64(p.Y) + 0.5, float64(p.Z) + 0.5}
		d := cell.Sub(s.Center).Len()
		v := occupancy(s.Radius, d)
		if hollow {
			v = max(0, v-occupancy(inner, d))
		}
		c := uint8(math.Round(v))
		if c == 0 {
			return m, 0
		}
		return s.Material, c
	}
}
