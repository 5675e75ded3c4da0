package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundUpAxis(t *testing.T) {
	tests := []struct{ in, want int }{
		{-4, 8}, {0, 8}, {1, 8}, {8, 8}, {9, 16}, {16, 16}, {17, 32}, {100, 128}, {1024, 1024},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RoundUpAxis(tc.in), "RoundUpAxis(%d)", tc.in)
	}
	assert.Equal(t, V3(8, 16, 64), RoundUpSize(V3(3, 10, 33)))
	assert.True(t, ValidVolumeSize(V3(8, 16, 64)))
	assert.False(t, ValidVolumeSize(V3(4, 16, 64)))
	assert.False(t, ValidVolumeSize(V3(8, 24, 64)))
}

func TestChunksCoverRegionOnce(t *testing.T) {
	region := Box{Min: V3(2, 0, 1), Max: V3(70, 9, 130)}
	seen := make(map[Vec3i]int)
	var order []Chunk
	for c := range Chunks(region, 64) {
		order = append(order, c)
		for z := c.Min.Z; z <= c.Max.Z; z++ {
			for y := c.Min.Y; y <= c.Max.Y; y++ {
				for x := c.Min.X; x <= c.Max.X; x++ {
					seen[V3(x, y, z)]++
				}
			}
		}
	}
	assert.Equal(t, region.Size().Volume(), len(seen))
	for p, n := range seen {
		if n != 1 {
			t.Fatalf("cell %v visited %d times", p, n)
		}
	}
	require.Len(t, order, 2*1*3)
	assert.Equal(t, Chunk{Min: V3(2, 0, 1), Max: V3(65, 9, 64)}, order[0])
	assert.Equal(t, Chunk{Min: V3(66, 0, 1), Max: V3(70, 9, 64)}, order[1])
	assert.Equal(t, order, ChunkList(region, 64), "walk must be deterministic")
}

func TestChunksSmallerThanEdge(t *testing.T) {
	chunks := ChunkList(BoxOf(V3(8, 8, 8)), 64)
	require.Len(t, chunks, 1)
	assert.Equal(t, V3(8, 8, 8), chunks[0].Size())
	assert.Empty(t, ChunkList(Box{Min: V3(1, 1, 1), Max: V3(0, 0, 0)}, 4))
}

func TestMortonRoundTrip(t *testing.T) {
	for _, p := range []Vec3i{V3(0, 0, 0), V3(1, 2, 3), V3(1023, 5, 77), V3(1<<20, 1, 1<<19)} {
		assert.Equal(t, p, MortonPoint(MortonKey(p)))
	}
	assert.Equal(t, uint64(1), MortonKey(V3(1, 0, 0)))
	assert.Equal(t, uint64(2), MortonKey(V3(0, 1, 0)))
	assert.Equal(t, uint64(4), MortonKey(V3(0, 0, 1)))
}

func TestGridCacheCopyFrom(t *testing.T) {
	src := NewGridCache(V3(4, 4, 4))
	for i := range src.ContentPlane() {
		src.ContentPlane()[i] = uint8(i)
		src.MaterialPlane()[i] = uint8(255 - i)
	}
	dst := NewGridCache(V3(2, 2, 2))
	dst.CopyFrom(src, V3(1, 1, 1))
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				p := V3(x, y, z)
				assert.Equal(t, src.Content(p.Add(Splat(1))), dst.Content(p))
				assert.Equal(t, src.Material(p.Add(Splat(1))), dst.Material(p))
			}
		}
	}
}

func TestGridCacheResizeReuses(t *testing.T) {
	c := NewGridCache(V3(4, 4, 4))
	c.Fill(ContentAndMaterial, 7, 9)
	c.Resize(V3(2, 2, 2))
	assert.Equal(t, 8, c.Len())
	assert.Panics(t, func() { c.Resize(V3(-1, 1, 1)) })
}

func TestBoxOps(t *testing.T) {
	a := Box{Min: V3(0, 0, 0), Max: V3(3, 3, 3)}
	b := Box{Min: V3(2, 2, 2), Max: V3(5, 5, 5)}
	assert.Equal(t, Box{Min: V3(2, 2, 2), Max: V3(3, 3, 3)}, a.Intersect(b))
	assert.Equal(t, Box{Min: V3(0, 0, 0), Max: V3(5, 5, 5)}, a.Union(b))
	assert.True(t, a.Intersect(Box{Min: V3(9, 9, 9), Max: V3(10, 10, 10)}).Empty())
	assert.Equal(t, V3(4, 4, 4), a.Size())
	assert.True(t, a.Grow(1).Contains(V3(-1, 4, 0)))
}
