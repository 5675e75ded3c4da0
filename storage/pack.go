package storage

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/voxelsplace/voxbuild/grid"
)

// PackCompression is the codec applied to the pack content section.
type PackCompression uint8

const (
	PackCompNone PackCompression = 0
	PackCompZlib PackCompression = 1
	PackCompZstd PackCompression = 2
)

func (c PackCompression) String() string {
	switch c {
	case PackCompNone:
		return "none"
	case PackCompZlib:
		return "zlib"
	case PackCompZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParsePackCompression maps "none", "zlib" and "zstd" to a PackCompression.
func ParsePackCompression(s string) (PackCompression, error) {
	switch s {
	case "", "none":
		return PackCompNone, nil
	case "zlib":
		return PackCompZlib, nil
	case "zstd":
		return PackCompZstd, nil
	}
	return 0, fmt.Errorf("unknown pack compression %q", s)
}

// PackLayout specifies how the content section stores entry payloads.
type PackLayout uint8

const (
	// LayoutRaw stores every entry payload as an independent blob.
	LayoutRaw PackLayout = 0
	// LayoutDedup stores a dictionary of block segments (header, content
	// plane, material plane) and entries as sequences of segment references,
	// so repeated blocks and repeated planes are stored once.
	LayoutDedup PackLayout = 1
)

func (l PackLayout) String() string {
	switch l {
	case LayoutRaw:
		return "raw"
	case LayoutDedup:
		return "dedup"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// ParsePackLayout maps "raw" and "dedup" to a PackLayout.
func ParsePackLayout(s string) (PackLayout, error) {
	switch s {
	case "", "raw":
		return LayoutRaw, nil
	case "dedup":
		return LayoutDedup, nil
	}
	return 0, fmt.Errorf("unknown pack layout %q", s)
}

const (
	packMagicStr = "VOXBPACK"
	packVersion  = 1

	// packSegMax bounds one dictionary segment of the dedup layout.
	packSegMax = 16384
)

// PackHeader is the volume description shared by all entries.
type PackHeader struct {
	SizeX, SizeY, SizeZ uint32
	BlockEdge           uint8
	DefaultMaterial     uint8
}

// PackEntry is one encoded block keyed by the Morton code of its block
// coordinate.
type PackEntry struct {
	Key     uint64
	Payload []byte
}

// Pack holds a header and encoded blocks.
type Pack struct {
	Header  PackHeader
	Entries []PackEntry
}

// Marshal encodes with the raw layout.
func (p *Pack) Marshal(comp PackCompression) ([]byte, error) {
	return p.MarshalEx(LayoutRaw, comp)
}

// MarshalEx encodes the pack with the given layout and content codec.
func (p *Pack) MarshalEx(layout PackLayout, comp PackCompression) ([]byte, error) {
	var content bytes.Buffer
	_ = binary.Write(&content, binary.LittleEndian, p.Header)
	_ = binary.Write(&content, binary.LittleEndian, uint8(layout))

	switch layout {
	case LayoutRaw:
		_ = binary.Write(&content, binary.LittleEndian, uint32(len(p.Entries)))
		for _, e := range p.Entries {
			_ = binary.Write(&content, binary.LittleEndian, e.Key)
			_ = binary.Write(&content, binary.LittleEndian, uint32(len(e.Payload)))
			_, _ = content.Write(e.Payload)
		}
	case LayoutDedup:
		_ = binary.Write(&content, binary.LittleEndian, uint32(packSegMax))
		dict, sequences := buildSegmentIndex(p.Entries)
		_ = binary.Write(&content, binary.LittleEndian, uint32(len(dict)))
		for _, seg := range dict {
			_ = binary.Write(&content, binary.LittleEndian, uint32(len(seg)))
			_, _ = content.Write(seg)
		}
		_ = binary.Write(&content, binary.LittleEndian, uint32(len(p.Entries)))
		for i, e := range p.Entries {
			_ = binary.Write(&content, binary.LittleEndian, e.Key)
			_ = binary.Write(&content, binary.LittleEndian, uint32(len(e.Payload)))
			seq := sequences[i]
			_ = binary.Write(&content, binary.LittleEndian, uint32(len(seq)))
			for _, idx := range seq {
				_ = binary.Write(&content, binary.LittleEndian, uint32(idx))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported pack layout: %v", layout)
	}

	var body []byte
	switch comp {
	case PackCompNone:
		body = content.Bytes()
	case PackCompZlib:
		var err error
		if body, err = zlibCompress(content.Bytes()); err != nil {
			return nil, fmt.Errorf("zlib pack content: %w", err)
		}
	case PackCompZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		body = enc.EncodeAll(content.Bytes(), nil)
		_ = enc.Close()
	default:
		return nil, fmt.Errorf("unsupported pack compression: %v", comp)
	}

	var out bytes.Buffer
	out.Grow(len(packMagicStr) + 2 + len(body))
	out.WriteString(packMagicStr)
	out.WriteByte(packVersion)
	out.WriteByte(uint8(comp))
	out.Write(body)
	return out.Bytes(), nil
}

// UnmarshalPack parses a .voxpack and reports the layout and compression
// it was written with.
func UnmarshalPack(data []byte) (*Pack, PackLayout, PackCompression, error) {
	if len(data) < len(packMagicStr)+2 || string(data[:len(packMagicStr)]) != packMagicStr {
		return nil, 0, 0, fmt.Errorf("%w: not a .voxpack", ErrBadMagic)
	}
	if v := data[8]; v != packVersion {
		return nil, 0, 0, fmt.Errorf("%w: unsupported pack version %d", ErrCorrupt, v)
	}
	comp := PackCompression(data[9])
	content := data[10:]
	switch comp {
	case PackCompNone:
	case PackCompZlib:
		zr, err := zlib.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: zlib content: %v", ErrCorrupt, err)
		}
		defer zr.Close()
		if content, err = io.ReadAll(zr); err != nil {
			return nil, 0, 0, fmt.Errorf("%w: zlib content: %v", ErrCorrupt, err)
		}
	case PackCompZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		if content, err = dec.DecodeAll(content, nil); err != nil {
			return nil, 0, 0, fmt.Errorf("%w: zstd content: %v", ErrCorrupt, err)
		}
	default:
		return nil, 0, 0, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, comp)
	}

	r := bytes.NewReader(content)
	pack := &Pack{}
	var lb uint8
	if err := binary.Read(r, binary.LittleEndian, &pack.Header); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: pack header: %v", ErrCorrupt, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &lb); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: pack layout: %v", ErrCorrupt, err)
	}
	layout := PackLayout(lb)

	var err error
	switch layout {
	case LayoutRaw:
		pack.Entries, err = readRawEntries(r)
	case LayoutDedup:
		pack.Entries, err = readDedupEntries(r)
	default:
		err = fmt.Errorf("unknown layout %d", lb)
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return pack, layout, comp, nil
}

func readRawEntries(r *bytes.Reader) ([]PackEntry, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	entries := make([]PackEntry, 0, min(int(n), r.Len()/12))
	for i := uint32(0); i < n; i++ {
		var e PackEntry
		var plen uint32
		if err := binary.Read(r, binary.LittleEndian, &e.Key); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &plen); err != nil {
			return nil, err
		}
		if int(plen) > r.Len() {
			return nil, fmt.Errorf("entry %d: payload length %d exceeds data", i, plen)
		}
		e.Payload = make([]byte, plen)
		if _, err := io.ReadFull(r, e.Payload); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readDedupEntries(r *bytes.Reader) ([]PackEntry, error) {
	var maxSz uint32
	if err := binary.Read(r, binary.LittleEndian, &maxSz); err != nil {
		return nil, err
	}
	var nSegs uint32
	if err := binary.Read(r, binary.LittleEndian, &nSegs); err != nil {
		return nil, err
	}
	segs := make([][]byte, 0, min(int(nSegs), r.Len()/4))
	for i := uint32(0); i < nSegs; i++ {
		var clen uint32
		if err := binary.Read(r, binary.LittleEndian, &clen); err != nil {
			return nil, err
		}
		if int(clen) > r.Len() {
			return nil, fmt.Errorf("segment %d: length %d exceeds data", i, clen)
		}
		c := make([]byte, clen)
		if _, err := io.ReadFull(r, c); err != nil {
			return nil, err
		}
		segs = append(segs, c)
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	entries := make([]PackEntry, 0, min(int(n), r.Len()/16))
	for i := uint32(0); i < n; i++ {
		var e PackEntry
		var rawLen, seqLen uint32
		if err := binary.Read(r, binary.LittleEndian, &e.Key); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rawLen); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &seqLen); err != nil {
			return nil, err
		}
		var total uint64
		e.Payload = make([]byte, 0, rawLen)
		for j := uint32(0); j < seqLen; j++ {
			var idx uint32
			if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
				return nil, err
			}
			if idx >= nSegs {
				return nil, fmt.Errorf("entry %d: segment index %d out of range", i, idx)
			}
			total += uint64(len(segs[idx]))
			if total > uint64(rawLen)+uint64(maxSz) {
				return nil, fmt.Errorf("entry %d: segment sequence longer than payload", i)
			}
			e.Payload = append(e.Payload, segs[idx]...)
		}
		if uint32(len(e.Payload)) != rawLen {
			return nil, fmt.Errorf("entry %d: payload length %d, want %d", i, len(e.Payload), rawLen)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// blockSegments splits an encoded block into its header and its two plane
// payloads, so blocks that share a content or material plane share
// segments. Payloads that are not well-formed blocks stay whole. Segments
// never exceed packSegMax.
func blockSegments(payload []byte) [][]byte {
	var h blockHeader
	hs := binary.Size(h)
	if binary.Read(bytes.NewReader(payload), binary.LittleEndian, &h) != nil ||
		string(h.Magic[:]) != blockMagic ||
		hs+int(h.ContentLen)+int(h.MaterialLen) != len(payload) {
		return appendSegments(nil, payload)
	}
	split := hs + int(h.ContentLen)
	segs := appendSegments(nil, payload[:hs])
	segs = appendSegments(segs, payload[hs:split])
	return appendSegments(segs, payload[split:])
}

func appendSegments(segs [][]byte, b []byte) [][]byte {
	for len(b) > packSegMax {
		segs = append(segs, b[:packSegMax])
		b = b[packSegMax:]
	}
	if len(b) > 0 {
		segs = append(segs, b)
	}
	return segs
}

// segmentDict is a content-addressed set of segments keyed by xxhash.
type segmentDict struct {
	segs  [][]byte
	index map[uint64][]int
}

func (d *segmentDict) add(b []byte) int {
	h := xxhash.Sum64(b)
	for _, idx := range d.index[h] {
		if bytes.Equal(d.segs[idx], b) {
			return idx
		}
	}
	idx := len(d.segs)
	d.segs = append(d.segs, append([]byte(nil), b...))
	d.index[h] = append(d.index[h], idx)
	return idx
}

// buildSegmentIndex returns the unique segments of all entries plus, per
// entry, the sequence of segment indices that rebuilds its payload.
func buildSegmentIndex(entries []PackEntry) ([][]byte, [][]int) {
	d := &segmentDict{index: make(map[uint64][]int, 3*len(entries))}
	seqs := make([][]int, len(entries))
	for i, e := range entries {
		for _, seg := range blockSegments(e.Payload) {
			seqs[i] = append(seqs[i], d.add(seg))
		}
	}
	return d.segs, seqs
}

// Pack encodes every stored block in key order.
func (s *BlockStore) Pack() *Pack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := &Pack{Header: PackHeader{
		SizeX:           uint32(s.size.X),
		SizeY:           uint32(s.size.Y),
		SizeZ:           uint32(s.size.Z),
		BlockEdge:       BlockEdge,
		DefaultMaterial: s.defaultMaterial,
	}}
	for _, key := range s.sortedKeys() {
		p.Entries = append(p.Entries, PackEntry{Key: key, Payload: EncodeBlock(s.blocks[key])})
	}
	return p
}

// MarshalPack encodes the volume as a .voxpack.
func (s *BlockStore) MarshalPack(layout PackLayout, comp PackCompression) ([]byte, error) {
	return s.Pack().MarshalEx(layout, comp)
}

// UnmarshalBlockStore decodes a .voxpack into a new BlockStore.
func UnmarshalBlockStore(data []byte) (*BlockStore, error) {
	p, _, _, err := UnmarshalPack(data)
	if err != nil {
		return nil, err
	}
	return p.BlockStore()
}

// BlockStore rebuilds the volume held by the pack.
func (p *Pack) BlockStore() (*BlockStore, error) {
	if p.Header.BlockEdge != BlockEdge {
		return nil, fmt.Errorf("%w: pack block edge %d", ErrCorrupt, p.Header.BlockEdge)
	}
	size := grid.V3(int(p.Header.SizeX), int(p.Header.SizeY), int(p.Header.SizeZ))
	s, err := NewBlockStore(size, p.Header.DefaultMaterial)
	if err != nil {
		return nil, err
	}
	blocks := grid.Vec3i{X: ceilDiv(size.X, BlockEdge), Y: ceilDiv(size.Y, BlockEdge), Z: ceilDiv(size.Z, BlockEdge)}
	for _, e := range p.Entries {
		if !blocks.Contains(grid.MortonPoint(e.Key)) {
			return nil, fmt.Errorf("%w: block key %d outside volume", ErrCorrupt, e.Key)
		}
		b, err := DecodeBlock(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("block %v: %w", grid.MortonPoint(e.Key), err)
		}
		if !b.uniform(0, s.defaultMaterial) {
			s.blocks[e.Key] = b
		}
	}
	return s, nil
}

// Save writes the volume to filename as a .voxpack.
func (s *BlockStore) Save(filename string, layout PackLayout, comp PackCompression) error {
	data, err := s.MarshalPack(layout, comp)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// Load reads a .voxpack file.
func Load(filename string) (*BlockStore, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	s, err := UnmarshalBlockStore(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
