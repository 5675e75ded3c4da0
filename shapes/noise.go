package shapes

import (
	"encoding/binary"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/voxelsplace/voxbuild/build"
	"github.com/voxelsplace/voxbuild/grid"
)

// Noise fills roughly Percent% of the cells with solid content and a
// material picked from Materials. The choice per cell depends only on Seed
// and the coordinate, so the action is pure and builds are reproducible
// with any scheduler.
type Noise struct {
	Percent   float64
	Seed      uint64
	Materials []uint8
}

// defaultNoiseMaterials are palette indices 1..63; 0 is left for empty.
var defaultNoiseMaterials = func() []uint8 {
	m := make([]uint8, 63)
	for i := range m {
		m[i] = uint8(i + 1)
	}
	return m
}()

func cellHash(seed uint64, p grid.Vec3i, salt uint8) uint64 {
	var b [21]byte
	binary.LittleEndian.PutUint64(b[0:], seed)
	binary.LittleEndian.PutUint32(b[8:], uint32(p.X))
	binary.LittleEndian.PutUint32(b[12:], uint32(p.Y))
	binary.LittleEndian.PutUint32(b[16:], uint32(p.Z))
	b[20] = salt
	return xxhash.Sum64(b[:])
}

func (n Noise) Action() build.CellAction {
	pct := min(max(n.Percent, 0), 100)
	// Compare the top 53 bits against the fill fraction.
	threshold := uint64(pct / 100 * (1 << 53))
	mats := n.Materials
	if len(mats) == 0 {
		mats = defaultNoiseMaterials
	}
	return func(_, p grid.Vec3i, m, _ uint8) (uint8, uint8) {
		if cellHash(n.Seed, p, 0)>>11 >= threshold {
			return m, 0
		}
		return mats[cellHash(n.Seed, p, 1)%uint64(len(mats))], 255
	}
}
