package grid

// VolumeStorage is the chunked grid a volume lives in. Ranges are inclusive
// on both ends and given in the coordinates of the requested level of
// detail; only LOD 0 may be written.
//
// Implementations are not assumed to be safe for concurrent writes, even to
// disjoint ranges.
type VolumeStorage interface {
	Size() Vec3i
	ReadRange(dst *GridCache, flags DataFlags, lod int, min, max Vec3i) error
	WriteRange(src *GridCache, flags DataFlags, min, max Vec3i) error
}
