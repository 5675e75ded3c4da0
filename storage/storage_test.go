package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelsplace/voxbuild/grid"
)

func patternBlock() *Block {
	b := &Block{}
	for z := 0; z < BlockEdge; z++ {
		for y := 0; y < BlockEdge; y++ {
			for x := 0; x < BlockEdge; x++ {
				i := blockIndex(x, y, z)
				if x+y+z < 20 {
					b.Content[i] = uint8((x*7 + y*3 + z) % 256)
					b.Material[i] = uint8(1 + (x+z)%5)
				}
			}
		}
	}
	return b
}

func TestBlockCodecRoundTrip(t *testing.T) {
	cases := map[string]*Block{
		"pattern": patternBlock(),
		"empty":   {},
		"solid":   newUniformBlock(255, 9),
	}
	single := &Block{}
	single.Content[blockIndex(15, 15, 15)] = 200
	cases["single"] = single

	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			data := EncodeBlock(b)
			got, err := DecodeBlock(data)
			require.NoError(t, err)
			assert.Equal(t, b.Content, got.Content)
			assert.Equal(t, b.Material, got.Material)
		})
	}
}

func TestDecodeBlockRejectsGarbage(t *testing.T) {
	_, err := DecodeBlock([]byte("nope"))
	assert.ErrorIs(t, err, ErrCorrupt)

	data := EncodeBlock(patternBlock())
	data[0] = 'X'
	_, err = DecodeBlock(data)
	assert.ErrorIs(t, err, ErrBadMagic)

	data = EncodeBlock(patternBlock())
	_, err = DecodeBlock(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNewBlockStoreValidatesSize(t *testing.T) {
	_, err := NewBlockStore(grid.V3(8, 12, 8), 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = NewBlockStore(grid.V3(4, 8, 8), 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	s, err := NewBlockStore(grid.V3(8, 16, 32), 3)
	require.NoError(t, err)
	assert.Equal(t, grid.V3(8, 16, 32), s.Size())
	assert.Equal(t, uint8(3), s.DefaultMaterial())
}

func TestReadDefaultVolume(t *testing.T) {
	s, err := NewBlockStore(grid.V3(32, 32, 32), 7)
	require.NoError(t, err)
	c := &grid.GridCache{}
	require.NoError(t, s.ReadRange(c, grid.ContentAndMaterial, 0, grid.V3(3, 4, 5), grid.V3(20, 21, 22)))
	assert.Equal(t, grid.V3(18, 18, 18), c.Size())
	for i := range c.ContentPlane() {
		assert.Zero(t, c.ContentPlane()[i])
		assert.Equal(t, uint8(7), c.MaterialPlane()[i])
	}
	assert.Zero(t, s.BlockCount())
}

func TestWriteReadRoundTripAcrossBlocks(t *testing.T) {
	s, err := NewBlockStore(grid.V3(64, 32, 32), 1)
	require.NoError(t, err)
	min, max := grid.V3(10, 5, 7), grid.V3(40, 20, 17)
	src := grid.NewGridCache(max.Sub(min).Add(grid.Splat(1)))
	size := src.Size()
	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				p := grid.V3(x, y, z)
				src.SetContent(p, uint8(x+y+z+1))
				src.SetMaterial(p, uint8(x%4+2))
			}
		}
	}
	require.NoError(t, s.WriteRange(src, grid.ContentAndMaterial, min, max))

	got := &grid.GridCache{}
	require.NoError(t, s.ReadRange(got, grid.ContentAndMaterial, 0, min, max))
	assert.Equal(t, src.ContentPlane(), got.ContentPlane())
	assert.Equal(t, src.MaterialPlane(), got.MaterialPlane())

	// Outside the written range the defaults remain.
	require.NoError(t, s.ReadRange(got, grid.ContentAndMaterial, 0, grid.V3(41, 0, 0), grid.V3(63, 31, 31)))
	for i := range got.ContentPlane() {
		assert.Zero(t, got.ContentPlane()[i])
		assert.Equal(t, uint8(1), got.MaterialPlane()[i])
	}
}

func TestWriteOnlySelectedPlane(t *testing.T) {
	s, err := NewBlockStore(grid.Splat(16), 4)
	require.NoError(t, err)
	src := grid.NewGridCache(grid.Splat(2))
	src.Fill(grid.ContentAndMaterial, 99, 8)
	require.NoError(t, s.WriteRange(src, grid.Content, grid.Splat(0), grid.Splat(1)))

	got := &grid.GridCache{}
	require.NoError(t, s.ReadRange(got, grid.ContentAndMaterial, 0, grid.Splat(0), grid.Splat(1)))
	for i := range got.ContentPlane() {
		assert.Equal(t, uint8(99), got.ContentPlane()[i])
		assert.Equal(t, uint8(4), got.MaterialPlane()[i])
	}
}

func TestDefaultBlocksAreDropped(t *testing.T) {
	s, err := NewBlockStore(grid.Splat(32), 2)
	require.NoError(t, err)
	src := grid.NewGridCache(grid.Splat(1))
	src.Fill(grid.ContentAndMaterial, 10, 2)
	require.NoError(t, s.WriteRange(src, grid.ContentAndMaterial, grid.Splat(20), grid.Splat(20)))
	assert.Equal(t, 1, s.BlockCount())

	src.Fill(grid.ContentAndMaterial, 0, 2)
	require.NoError(t, s.WriteRange(src, grid.ContentAndMaterial, grid.Splat(20), grid.Splat(20)))
	assert.Zero(t, s.BlockCount())
}

func TestRangeErrors(t *testing.T) {
	s, err := NewBlockStore(grid.Splat(16), 0)
	require.NoError(t, err)
	c := grid.NewGridCache(grid.Splat(4))
	assert.ErrorIs(t, s.ReadRange(c, grid.Content, 0, grid.Splat(-1), grid.Splat(2)), ErrOutOfRange)
	assert.ErrorIs(t, s.ReadRange(c, grid.Content, 0, grid.Splat(0), grid.Splat(16)), ErrOutOfRange)
	assert.ErrorIs(t, s.ReadRange(c, grid.Content, 0, grid.Splat(3), grid.Splat(2)), ErrOutOfRange)
	assert.ErrorIs(t, s.ReadRange(c, grid.Content, 1, grid.Splat(0), grid.Splat(8)), ErrOutOfRange)
	assert.ErrorIs(t, s.WriteRange(c, grid.Content, grid.Splat(0), grid.Splat(4)), ErrOutOfRange, "source too small")
	assert.ErrorIs(t, s.WriteRangeLOD(c, grid.Content, 1, grid.Splat(0), grid.Splat(3)), ErrLODWrite)
	assert.NoError(t, s.WriteRangeLOD(c, grid.Content, 0, grid.Splat(0), grid.Splat(3)))
}

func TestLODRead(t *testing.T) {
	s, err := NewBlockStore(grid.Splat(8), 0)
	require.NoError(t, err)
	// One 2³ cell group: content 255 in two cells, material 5 on the first
	// fullest cell and 6 on the second.
	src := grid.NewGridCache(grid.Splat(2))
	src.Fill(grid.ContentAndMaterial, 0, 0)
	src.SetContent(grid.V3(1, 0, 0), 255)
	src.SetMaterial(grid.V3(1, 0, 0), 5)
	src.SetContent(grid.V3(0, 1, 0), 255)
	src.SetMaterial(grid.V3(0, 1, 0), 6)
	require.NoError(t, s.WriteRange(src, grid.ContentAndMaterial, grid.Splat(0), grid.Splat(1)))

	got := &grid.GridCache{}
	require.NoError(t, s.ReadRange(got, grid.ContentAndMaterial, 1, grid.Splat(0), grid.Splat(3)))
	assert.Equal(t, grid.Splat(4), got.Size())
	assert.Equal(t, uint8(64), got.Content(grid.V3(0, 0, 0)), "510/8 rounds to 64")
	assert.Equal(t, uint8(5), got.Material(grid.V3(0, 0, 0)))
	assert.Zero(t, got.Content(grid.V3(1, 0, 0)))

	require.NoError(t, s.ReadRange(got, grid.Content, 3, grid.Splat(0), grid.Splat(0)))
	assert.Equal(t, uint8(1), got.Content(grid.V3(0, 0, 0)), "510/512 rounds to 1")
}

func fillStore(t *testing.T) *BlockStore {
	t.Helper()
	s, err := NewBlockStore(grid.V3(64, 32, 32), 3)
	require.NoError(t, err)
	src := grid.NewGridCache(grid.V3(64, 20, 20))
	size := src.Size()
	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				if (x/16)%2 == 0 {
					src.SetContent(grid.V3(x, y, z), 255)
					src.SetMaterial(grid.V3(x, y, z), 7)
				} else {
					src.SetContent(grid.V3(x, y, z), uint8(x*y+z))
					src.SetMaterial(grid.V3(x, y, z), 3)
				}
			}
		}
	}
	require.NoError(t, s.WriteRange(src, grid.ContentAndMaterial, grid.V3(0, 4, 4), grid.V3(63, 23, 23)))
	return s
}

func TestPackRoundTrip(t *testing.T) {
	s := fillStore(t)
	want := s.Checksum()
	for _, layout := range []PackLayout{LayoutRaw, LayoutDedup} {
		for _, comp := range []PackCompression{PackCompNone, PackCompZlib, PackCompZstd} {
			t.Run(layout.String()+"/"+comp.String(), func(t *testing.T) {
				data, err := s.MarshalPack(layout, comp)
				require.NoError(t, err)
				_, gotLayout, gotComp, err := UnmarshalPack(data)
				require.NoError(t, err)
				assert.Equal(t, layout, gotLayout)
				assert.Equal(t, comp, gotComp)

				back, err := UnmarshalBlockStore(data)
				require.NoError(t, err)
				assert.Equal(t, s.Size(), back.Size())
				assert.Equal(t, s.BlockCount(), back.BlockCount())
				assert.Equal(t, want, back.Checksum())
			})
		}
	}
}

func TestDedupSharesBlocksAndPlanes(t *testing.T) {
	a := patternBlock()
	b := patternBlock()
	for i := range b.Material {
		b.Material[i] = 9
	}
	entries := []PackEntry{
		{Key: 1, Payload: EncodeBlock(a)},
		{Key: 2, Payload: EncodeBlock(a)},
		{Key: 3, Payload: EncodeBlock(b)},
	}
	dict, seqs := buildSegmentIndex(entries)
	require.Len(t, seqs[0], 3)
	require.Len(t, seqs[2], 3)
	assert.Equal(t, seqs[0], seqs[1], "identical blocks")
	assert.Equal(t, seqs[0][1], seqs[2][1], "same content plane")
	assert.NotEqual(t, seqs[0][2], seqs[2][2], "different material plane")

	stored := 0
	for _, seg := range dict {
		stored += len(seg)
	}
	assert.Less(t, stored, len(entries[0].Payload)+len(entries[2].Payload))
}

func TestDedupRoundTripsForeignPayloads(t *testing.T) {
	payload := make([]byte, 2*packSegMax+100)
	state := uint64(0x9E3779B97F4A7C15)
	for i := range payload {
		state = state*6364136223846793005 + 1442695040888963407
		payload[i] = byte(state >> 56)
	}
	p := &Pack{Entries: []PackEntry{{Key: 1, Payload: payload}, {Key: 2, Payload: []byte("VOXB")}}}
	_, seqs := buildSegmentIndex(p.Entries)
	assert.Len(t, seqs[0], 3, "split at the segment limit")

	data, err := p.MarshalEx(LayoutDedup, PackCompNone)
	require.NoError(t, err)
	back, layout, _, err := UnmarshalPack(data)
	require.NoError(t, err)
	assert.Equal(t, LayoutDedup, layout)
	require.Len(t, back.Entries, 2)
	assert.Equal(t, payload, back.Entries[0].Payload)
	assert.Equal(t, []byte("VOXB"), back.Entries[1].Payload)
}

func TestUnmarshalPackErrors(t *testing.T) {
	_, _, _, err := UnmarshalPack([]byte("VOPLPACK\x01\x00"))
	assert.ErrorIs(t, err, ErrBadMagic)

	s := fillStore(t)
	data, err := s.MarshalPack(LayoutRaw, PackCompNone)
	require.NoError(t, err)
	_, _, _, err = UnmarshalPack(data[:len(data)-10])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveLoad(t *testing.T) {
	s := fillStore(t)
	path := filepath.Join(t.TempDir(), "vol.voxpack")
	require.NoError(t, s.Save(path, LayoutDedup, PackCompZstd))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Checksum(), back.Checksum())
}

func TestParseOptions(t *testing.T) {
	c, err := ParsePackCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, PackCompZstd, c)
	_, err = ParsePackCompression("lz4")
	assert.Error(t, err)
	l, err := ParsePackLayout("dedup")
	require.NoError(t, err)
	assert.Equal(t, LayoutDedup, l)
}
