package raytrace

import (
	"math"

	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/mesh"
)

// Cuboid is the dense tracer output. Cell i on an axis spans
// [Origin+i, Origin+i+1) in mesh space. A Material of mesh.Unset means no
// mesh claimed the cell.
type Cuboid struct {
	Origin   grid.Vec3i
	Size     grid.Vec3i
	Content  []uint8
	Material []uint8
}

func newCuboid(origin, size grid.Vec3i) *Cuboid {
	n := size.Volume()
	c := &Cuboid{Origin: origin, Size: size, Content: make([]uint8, n), Material: make([]uint8, n)}
	for i := range c.Material {
		c.Material[i] = mesh.Unset
	}
	return c
}

// At returns the cell at p, in cuboid coordinates.
func (c *Cuboid) At(p grid.Vec3i) (material, content uint8) {
	i := c.Size.Index(p)
	return c.Material[i], c.Content[i]
}

// VolumeSize is the smallest valid volume that holds the cuboid.
func (c *Cuboid) VolumeSize() grid.Vec3i { return grid.RoundUpSize(c.Size) }

// Placement returns the offset that centers the cuboid in a volume.
func (c *Cuboid) Placement(volumeSize grid.Vec3i) grid.Vec3i {
	d := volumeSize.Sub(c.Size)
	return grid.V3(d.X/2, d.Y/2, d.Z/2)
}

// CellAction writes the cuboid into a volume with its cell 0 at offset.
func (c *Cuboid) CellAction(offset grid.Vec3i) build.CellAction {
	return func(_, p grid.Vec3i, m, content uint8) (uint8, uint8) {
		q := p.Sub(offset)
		if !c.Size.Contains(q) {
			return m, content
		}
		i := c.Size.Index(q)
		if c.Material[i] != mesh.Unset {
			m = c.Material[i]
		}
		return m, c.Content[i]
	}
}

type cellState uint8

const (
	stateUnset cellState = iota
	stateInherited
	stateBled
	stateOccupied
)

// composite merges one traced mesh into c.
func (c *Cuboid) composite(m *mesh.Mesh, acc []float64, bleed []bool, state []cellState) {
	for i, a := range acc {
		v := uint8(min(math.Round(a), 255))
		if m.CutOut() {
			c.Content[i] -= min(c.Content[i], v)
			continue
		}
		if v > 0 {
			c.Content[i] = max(c.Content[i], v)
			c.Material[i] = m.Material
			state[i] = stateOccupied
			continue
		}
		if c.Content[i] != 0 {
			continue
		}
		switch {
		case bleed[i] && state[i] < stateBled:
			c.Material[i] = m.FaceMaterial
			state[i] = stateBled
		case state[i] == stateUnset:
			c.Material[i] = m.Material
			state[i] = stateInherited
		}
	}
}
