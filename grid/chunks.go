package grid

import "iter"

// DefaultChunkEdge is the chunk edge used when walking a volume.
const DefaultChunkEdge = 64

// Chunk is one step of a chunked walk: an inclusive cell range.
type Chunk = Box

// Chunks walks region in chunks of the given edge, clipped to the region.
// Order is z outer, then y, then x, so two walks of the same region always
// yield the same sequence. A non-positive edge uses DefaultChunkEdge.
func Chunks(region Box, edge int) iter.Seq[Chunk] {
	if edge <= 0 {
		edge = DefaultChunkEdge
	}
	return func(yield func(Chunk) bool) {
		if region.Empty() {
			return
		}
		for z := region.Min.Z; z <= region.Max.Z; z += edge {
			for y := region.Min.Y; y <= region.Max.Y; y += edge {
				for x := region.Min.X; x <= region.Max.X; x += edge {
					lo := Vec3i{x, y, z}
					hi := lo.Add(Splat(edge - 1)).Min(region.Max)
					if !yield(Chunk{Min: lo, Max: hi}) {
						return
					}
				}
			}
		}
	}
}

// ChunkList collects Chunks into a slice.
func ChunkList(region Box, edge int) []Chunk {
	var out []Chunk
	for c := range Chunks(region, edge) {
		out = append(out, c)
	}
	return out
}
