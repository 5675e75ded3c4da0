package api

import (
	"fmt"

	"github.com/voxelsplace/voxbuild/grid"
	"github.com/voxelsplace/voxbuild/storage"
)

// VolumeInfo summarizes a .voxpack.
type VolumeInfo struct {
	Size            grid.Vec3i
	DefaultMaterial uint8
	Blocks          int
	// Bounds is valid only when Empty is false.
	Bounds      grid.Box
	Empty       bool
	Checksum    uint64
	Layout      storage.PackLayout
	Compression storage.PackCompression
}

func (i *VolumeInfo) String() string {
	bounds := "empty"
	if !i.Empty {
		bounds = i.Bounds.String()
	}
	return fmt.Sprintf("size %v, %d blocks, content %s, layout %s, compression %s, checksum %016x",
		i.Size, i.Blocks, bounds, i.Layout, i.Compression, i.Checksum)
}

// Info decodes pack and describes it.
func Info(pack []byte) (*VolumeInfo, error) {
	p, layout, comp, err := storage.UnmarshalPack(pack)
	if err != nil {
		return nil, err
	}
	vol, err := p.BlockStore()
	if err != nil {
		return nil, err
	}
	bounds, ok, err := grid.ContentBounds(vol)
	if err != nil {
		return nil, err
	}
	return &VolumeInfo{
		Size:            vol.Size(),
		DefaultMaterial: vol.DefaultMaterial(),
		Blocks:          vol.BlockCount(),
		Bounds:          bounds,
		Empty:           !ok,
		Checksum:        vol.Checksum(),
		Layout:          layout,
		Compression:     comp,
	}, nil
}
