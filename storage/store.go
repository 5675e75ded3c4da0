// Package storage implements grid.VolumeStorage as a sparse map of 16³
// blocks keyed by Morton code, with a compact on-disk container (.voxpack).
package storage

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/voxelsplace/voxbuild/grid"
)

// BlockStore is an in-memory volume. Blocks equal to the default fill
// (content 0, default material) are not kept. It is safe for concurrent use.
type BlockStore struct {
	mu              sync.RWMutex
	size            grid.Vec3i
	defaultMaterial uint8
	blocks          map[uint64]*Block
}

var _ grid.VolumeStorage = (*BlockStore)(nil)

// NewBlockStore returns an empty volume of the given size whose cells all
// hold content 0 and defaultMaterial.
func NewBlockStore(size grid.Vec3i, defaultMaterial uint8) (*BlockStore, error) {
	if !grid.ValidVolumeSize(size) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	return &BlockStore{
		size:            size,
		defaultMaterial: defaultMaterial,
		blocks:          make(map[uint64]*Block),
	}, nil
}

func (s *BlockStore) Size() grid.Vec3i { return s.size }

// DefaultMaterial is the material of cells no block was ever written for.
func (s *BlockStore) DefaultMaterial() uint8 { return s.defaultMaterial }

// BlockCount returns the number of stored (non-default) blocks.
func (s *BlockStore) BlockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

func (s *BlockStore) checkRange(min, max grid.Vec3i, size grid.Vec3i) error {
	b := grid.Box{Min: min, Max: max}
	if b.Empty() || !size.Contains(min) || !size.Contains(max) {
		return fmt.Errorf("%w: %v in %v", ErrOutOfRange, b, size)
	}
	return nil
}

// ReadRange copies [min, max] into dst, resizing it to the range. At lod > 0
// coordinates are in units of 2^lod cells; each destination cell holds the
// rounded mean content of the cells below it and the material of the
// fullest one.
func (s *BlockStore) ReadRange(dst *grid.GridCache, flags grid.DataFlags, lod int, min, max grid.Vec3i) error {
	if lod < 0 || lod > 30 {
		return fmt.Errorf("%w: lod %d", ErrOutOfRange, lod)
	}
	lodSize := grid.Vec3i{X: s.size.X >> lod, Y: s.size.Y >> lod, Z: s.size.Z >> lod}
	if err := s.checkRange(min, max, lodSize); err != nil {
		return err
	}
	if lod == 0 {
		dst.Resize(max.Sub(min).Add(grid.Splat(1)))
		s.mu.RLock()
		defer s.mu.RUnlock()
		s.copyOut(dst, flags, min, max)
		return nil
	}

	fine := grid.NewGridCache(grid.Vec3i{})
	fineMin := min.Mul(1 << lod)
	fineMax := max.Add(grid.Splat(1)).Mul(1 << lod).Sub(grid.Splat(1))
	fine.Resize(fineMax.Sub(fineMin).Add(grid.Splat(1)))
	s.mu.RLock()
	s.copyOut(fine, grid.ContentAndMaterial, fineMin, fineMax)
	s.mu.RUnlock()

	dst.Resize(max.Sub(min).Add(grid.Splat(1)))
	downsample(dst, fine, flags, 1<<lod)
	return nil
}

func downsample(dst, fine *grid.GridCache, flags grid.DataFlags, step int) {
	out := dst.Size()
	n := step * step * step
	for z := 0; z < out.Z; z++ {
		for y := 0; y < out.Y; y++ {
			for x := 0; x < out.X; x++ {
				sum := 0
				best, bestMat := -1, uint8(0)
				for dz := 0; dz < step; dz++ {
					for dy := 0; dy < step; dy++ {
						for dx := 0; dx < step; dx++ {
							p := grid.Vec3i{X: x*step + dx, Y: y*step + dy, Z: z*step + dz}
							c := int(fine.Content(p))
							sum += c
							if c > best {
								best, bestMat = c, fine.Material(p)
							}
						}
					}
				}
				p := grid.Vec3i{X: x, Y: y, Z: z}
				if flags.Has(grid.Content) {
					dst.SetContent(p, uint8((sum+n/2)/n))
				}
				if flags.Has(grid.Material) {
					dst.SetMaterial(p, bestMat)
				}
			}
		}
	}
}

// copyOut fills dst from [min, max] at LOD 0. Callers hold s.mu.
func (s *BlockStore) copyOut(dst *grid.GridCache, flags grid.DataFlags, min, max grid.Vec3i) {
	cont, mat := dst.ContentPlane(), dst.MaterialPlane()
	dsize := dst.Size()
	s.forBlocks(min, max, func(bp grid.Vec3i, lo, hi grid.Vec3i) {
		blk := s.blocks[grid.MortonKey(bp)]
		origin := bp.Mul(BlockEdge)
		rowLen := hi.X - lo.X + 1
		for z := lo.Z; z <= hi.Z; z++ {
			for y := lo.Y; y <= hi.Y; y++ {
				di := dsize.Index(grid.Vec3i{X: lo.X - min.X, Y: y - min.Y, Z: z - min.Z})
				if blk == nil {
					if flags.Has(grid.Content) {
						clear(cont[di : di+rowLen])
					}
					if flags.Has(grid.Material) {
						fillBytes(mat[di:di+rowLen], s.defaultMaterial)
					}
					continue
				}
				bi := blockIndex(lo.X-origin.X, y-origin.Y, z-origin.Z)
				if flags.Has(grid.Content) {
					copy(cont[di:di+rowLen], blk.Content[bi:bi+rowLen])
				}
				if flags.Has(grid.Material) {
					copy(mat[di:di+rowLen], blk.Material[bi:bi+rowLen])
				}
			}
		}
	})
}

// WriteRange copies src into [min, max]. src must be at least the size of
// the range; cell (0,0,0) of src lands on min.
func (s *BlockStore) WriteRange(src *grid.GridCache, flags grid.DataFlags, min, max grid.Vec3i) error {
	if err := s.checkRange(min, max, s.size); err != nil {
		return err
	}
	need := max.Sub(min).Add(grid.Splat(1))
	if have := src.Size(); have.X < need.X || have.Y < need.Y || have.Z < need.Z {
		return fmt.Errorf("%w: source %v smaller than range %v", ErrOutOfRange, have, need)
	}
	cont, mat := src.ContentPlane(), src.MaterialPlane()
	ssize := src.Size()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.forBlocks(min, max, func(bp grid.Vec3i, lo, hi grid.Vec3i) {
		key := grid.MortonKey(bp)
		blk := s.blocks[key]
		if blk == nil {
			blk = newUniformBlock(0, s.defaultMaterial)
		}
		origin := bp.Mul(BlockEdge)
		rowLen := hi.X - lo.X + 1
		for z := lo.Z; z <= hi.Z; z++ {
			for y := lo.Y; y <= hi.Y; y++ {
				si := ssize.Index(grid.Vec3i{X: lo.X - min.X, Y: y - min.Y, Z: z - min.Z})
				bi := blockIndex(lo.X-origin.X, y-origin.Y, z-origin.Z)
				if flags.Has(grid.Content) {
					copy(blk.Content[bi:bi+rowLen], cont[si:si+rowLen])
				}
				if flags.Has(grid.Material) {
					copy(blk.Material[bi:bi+rowLen], mat[si:si+rowLen])
				}
			}
		}
		if blk.uniform(0, s.defaultMaterial) {
			delete(s.blocks, key)
		} else {
			s.blocks[key] = blk
		}
	})
	return nil
}

// WriteRangeLOD is WriteRange for callers that carry a level of detail
// alongside their ranges. Only LOD 0 is writable.
func (s *BlockStore) WriteRangeLOD(src *grid.GridCache, flags grid.DataFlags, lod int, min, max grid.Vec3i) error {
	if lod != 0 {
		return fmt.Errorf("%w: lod %d", ErrLODWrite, lod)
	}
	return s.WriteRange(src, flags, min, max)
}

// forBlocks calls fn for every block overlapping [min, max] with the
// overlapping cell range in volume coordinates.
func (s *BlockStore) forBlocks(min, max grid.Vec3i, fn func(bp, lo, hi grid.Vec3i)) {
	bmin := grid.Vec3i{X: min.X / BlockEdge, Y: min.Y / BlockEdge, Z: min.Z / BlockEdge}
	bmax := grid.Vec3i{X: max.X / BlockEdge, Y: max.Y / BlockEdge, Z: max.Z / BlockEdge}
	for bz := bmin.Z; bz <= bmax.Z; bz++ {
		for by := bmin.Y; by <= bmax.Y; by++ {
			for bx := bmin.X; bx <= bmax.X; bx++ {
				bp := grid.Vec3i{X: bx, Y: by, Z: bz}
				origin := bp.Mul(BlockEdge)
				lo := origin.Max(min)
				hi := origin.Add(grid.Splat(BlockEdge - 1)).Min(max)
				fn(bp, lo, hi)
			}
		}
	}
}

// Checksum hashes the volume's size, default material and every stored
// block in key order. Equal volumes give equal checksums.
func (s *BlockStore) Checksum() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := xxhash.New()
	var hdr [13]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(s.size.X))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(s.size.Y))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(s.size.Z))
	hdr[12] = s.defaultMaterial
	_, _ = d.Write(hdr[:])
	var kb [8]byte
	for _, key := range s.sortedKeys() {
		blk := s.blocks[key]
		binary.LittleEndian.PutUint64(kb[:], key)
		_, _ = d.Write(kb[:])
		_, _ = d.Write(blk.Content[:])
		_, _ = d.Write(blk.Material[:])
	}
	return d.Sum64()
}

func (s *BlockStore) sortedKeys() []uint64 {
	keys := make([]uint64, 0, len(s.blocks))
	for k := range s.blocks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func fillBytes(b []byte, v uint8) {
	for i := range b {
		b[i] = v
	}
}
