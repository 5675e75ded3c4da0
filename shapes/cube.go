// Package shapes provides procedural cell actions: cubes, boxes, spheres,
// noise fills and material edits. None of them depend on a mesh.
package shapes

import (
	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
)

// Cube fills [SafeSize, SafeSize+Size) on every axis. SafeSize is an empty
// margin kept around the cube inside the volume. A hollow cube keeps only
// the cells within ShellWidth of its faces.
type Cube struct {
	Size       grid.Vec3i
	SafeSize   int
	Hollow     bool
	ShellWidth int
	Material   uint8
}

// VolumeSize is the smallest valid volume that holds the cube and its margin.
func (c Cube) VolumeSize() grid.Vec3i {
	return grid.RoundUpSize(c.Size.Add(grid.Splat(2 * c.SafeSize)))
}

// Bounds returns the inclusive box the cube occupies.
func (c Cube) Bounds() grid.Box {
	lo := grid.Splat(c.SafeSize)
	return grid.Box{Min: lo, Max: lo.Add(c.Size).Sub(grid.Splat(1))}
}

// Action returns the cell action that draws the cube. Cells outside it are
// emptied and keep their material.
func (c Cube) Action() build.CellAction {
	bb := c.Bounds()
	return Box{Min: bb.Min, Max: bb.Max, Hollow: c.Hollow, ShellWidth: c.ShellWidth, Material: c.Material}.Action()
}

// Box fills the inclusive cell range [Min, Max].
type Box struct {
	Min, Max   grid.Vec3i
	Hollow     bool
	ShellWidth int
	Material   uint8
}

func (b Box) Action() build.CellAction {
	outer := grid.Box{Min: b.Min, Max: b.Max}
	inner := outer.Grow(-b.ShellWidth)
	hollow := b.Hollow && b.ShellWidth > 0 && !inner.Empty()
	return func(_, p grid.Vec3i, m, _ uint8) (uint8, uint8) {
		if !outer.Contains(p) || (hollow && inner.Contains(p)) {
			return m, 0
		}
		return b.Material, 255
	}
}
