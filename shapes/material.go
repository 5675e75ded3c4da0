package shapes

import (
	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
)

// SetMaterial paints every occupied cell with m.
func SetMaterial(m uint8) build.CellAction {
	return func(_, _ grid.Vec3i, cur, c uint8) (uint8, uint8) {
		if c == 0 {
			return cur, c
		}
		return m, c
	}
}

// ReplaceMaterial swaps material from for to wherever it appears.
func ReplaceMaterial(from, to uint8) build.CellAction {
	return func(_, _ grid.Vec3i, m, c uint8) (uint8, uint8) {
		if m == from {
			return to, c
		}
		return m, c
	}
}

// Cell is the full state of one voxel.
type Cell struct {
	Material uint8 `json:"material"`
	Content  uint8 `json:"content"`
}

// Edits overrides individual cells. Coordinates outside the volume are
// never visited and so are ignored.
type Edits map[grid.Vec3i]Cell

func (e Edits) Action() build.CellAction {
	return func(_, p grid.Vec3i, m, c uint8) (uint8, uint8) {
		if cell, ok := e[p]; ok {
			return cell.Material, cell.Content
		}
		return m, c
	}
}

// Chain applies actions in order, each seeing the result of the previous.
func Chain(actions ...build.CellAction) build.CellAction {
	return func(size, p grid.Vec3i, m, c uint8) (uint8, uint8) {
		for _, a := range actions {
			m, c = a(size, p, m, c)
		}
		return m, c
	}
}
