package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	BlockEdge  = 16
	BlockCells = BlockEdge * BlockEdge * BlockEdge

	blockMagic   = "VOXB"
	blockVersion = 1
)

var (
	ErrInvalidSize = errors.New("storage: volume size must be a power of two >= 8 on every axis")
	ErrOutOfRange  = errors.New("storage: range outside volume")
	ErrLODWrite    = errors.New("storage: only LOD 0 can be written")
	ErrBadMagic    = errors.New("storage: bad magic")
	ErrCorrupt     = errors.New("storage: corrupt data")
)

// Block is one 16³ storage unit, cells indexed x + y*16 + z*256.
type Block struct {
	Content  [BlockCells]uint8
	Material [BlockCells]uint8
}

func blockIndex(x, y, z int) int { return x + y*BlockEdge + z*BlockEdge*BlockEdge }

func newUniformBlock(content, material uint8) *Block {
	b := &Block{}
	for i := range b.Content {
		b.Content[i] = content
		b.Material[i] = material
	}
	return b
}

// uniform reports whether every cell holds content c and material m.
func (b *Block) uniform(c, m uint8) bool {
	for i := range b.Content {
		if b.Content[i] != c || b.Material[i] != m {
			return false
		}
	}
	return true
}

// blockHeader is the fixed part of an encoded block.
type blockHeader struct {
	Magic       [4]byte
	Ver         uint8
	ContentEnc  uint8
	ContentBPP  uint8
	MaterialEnc uint8
	MaterialBPP uint8
	Edge        uint8
	ContentLen  uint32
	MaterialLen uint32
}

// EncodeBlock serializes both planes, each with its smallest encoding.
func EncodeBlock(b *Block) []byte {
	h := blockHeader{Ver: blockVersion, Edge: BlockEdge}
	copy(h.Magic[:], blockMagic)
	var cPayload, mPayload []byte
	h.ContentEnc, h.ContentBPP, cPayload = encodePlane(&b.Content)
	h.MaterialEnc, h.MaterialBPP, mPayload = encodePlane(&b.Material)
	h.ContentLen = uint32(len(cPayload))
	h.MaterialLen = uint32(len(mPayload))

	var buf bytes.Buffer
	buf.Grow(binary.Size(h) + len(cPayload) + len(mPayload))
	_ = binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(cPayload)
	buf.Write(mPayload)
	return buf.Bytes()
}

// DecodeBlock parses a block written by EncodeBlock.
func DecodeBlock(data []byte) (*Block, error) {
	var h blockHeader
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: block header: %v", ErrCorrupt, err)
	}
	if string(h.Magic[:]) != blockMagic {
		return nil, fmt.Errorf("%w: block %q", ErrBadMagic, h.Magic[:])
	}
	if h.Ver != blockVersion {
		return nil, fmt.Errorf("%w: unsupported block version %d", ErrCorrupt, h.Ver)
	}
	if h.Edge != BlockEdge {
		return nil, fmt.Errorf("%w: block edge %d", ErrCorrupt, h.Edge)
	}
	cPayload := make([]byte, h.ContentLen)
	if _, err := io.ReadFull(r, cPayload); err != nil {
		return nil, fmt.Errorf("%w: content payload: %v", ErrCorrupt, err)
	}
	mPayload := make([]byte, h.MaterialLen)
	if _, err := io.ReadFull(r, mPayload); err != nil {
		return nil, fmt.Errorf("%w: material payload: %v", ErrCorrupt, err)
	}
	b := &Block{}
	if err := decodePlane(&b.Content, h.ContentEnc, h.ContentBPP, cPayload); err != nil {
		return nil, fmt.Errorf("content plane: %w", err)
	}
	if err := decodePlane(&b.Material, h.MaterialEnc, h.MaterialBPP, mPayload); err != nil {
		return nil, fmt.Errorf("material plane: %w", err)
	}
	return b, nil
}
