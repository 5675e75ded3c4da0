package storage

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math/bits"

	"github.com/voxelsplace/voxbuild/grid"
)

// Plane encodings. The high bit marks a zlib-compressed payload.
const (
	encDense  uint8 = 0
	encSparse uint8 = 1 // count + (12-bit index, value) pairs
	encBitmap uint8 = 3 // occupancy bitmap + nonzero values

	encZlib uint8 = 0x80
)

const bitmapBytes = BlockCells / 8

// mortonOrder[rank] is the linear block index of the rank-th cell along the
// Z-order curve. Inside a 16³ block the Morton code is itself the rank.
var mortonOrder [BlockCells]uint16

func init() {
	for z := 0; z < BlockEdge; z++ {
		for y := 0; y < BlockEdge; y++ {
			for x := 0; x < BlockEdge; x++ {
				rank := grid.Morton3D(uint32(x), uint32(y), uint32(z))
				mortonOrder[rank] = uint16(blockIndex(x, y, z))
			}
		}
	}
}

// planeBPP is the number of bits needed for the largest value in the plane.
func planeBPP(plane *[BlockCells]uint8) uint8 {
	var hi uint8
	for _, v := range plane {
		hi |= v
	}
	n := uint8(bits.Len8(hi))
	if n == 0 {
		n = 1
	}
	return n
}

func encodeDense(stream []uint8, bpp uint8) []byte {
	bw := newBitWriter(len(stream) * int(bpp) / 8)
	for _, c := range stream {
		bw.writeBits(uint64(c), bpp)
	}
	return bw.bytes()
}

func encodeSparse(stream []uint8, bpp uint8) []byte {
	count := 0
	for _, c := range stream {
		if c != 0 {
			count++
		}
	}
	bw := newBitWriter(2 + count*(12+int(bpp))/8)
	bw.writeBits(uint64(count), 16)
	for i, c := range stream {
		if c == 0 {
			continue
		}
		bw.writeBits(uint64(i), 12)
		bw.writeBits(uint64(c), bpp)
	}
	return bw.bytes()
}

func encodeBitmap(stream []uint8, bpp uint8) []byte {
	out := make([]byte, bitmapBytes, bitmapBytes+len(stream))
	bw := newBitWriter(len(stream) * int(bpp) / 8)
	for i, v := range stream {
		if v != 0 {
			out[i>>3] |= 1 << (uint(i) & 7)
			bw.writeBits(uint64(v), bpp)
		}
	}
	return append(out, bw.bytes()...)
}

// encodePlane picks the smallest of the raw and zlib-compressed encodings.
func encodePlane(plane *[BlockCells]uint8) (enc, bpp uint8, payload []byte) {
	bpp = planeBPP(plane)
	stream := make([]uint8, BlockCells)
	for rank, lin := range mortonOrder {
		stream[rank] = plane[lin]
	}
	candidates := []struct {
		enc     uint8
		payload []byte
	}{
		{encDense, encodeDense(stream, bpp)},
		{encSparse, encodeSparse(stream, bpp)},
		{encBitmap, encodeBitmap(stream, bpp)},
	}
	enc, payload = candidates[0].enc, candidates[0].payload
	for _, c := range candidates[1:] {
		if len(c.payload) < len(payload) {
			enc, payload = c.enc, c.payload
		}
	}
	for _, c := range candidates {
		zb, err := zlibCompress(c.payload)
		if err == nil && len(zb) < len(payload) {
			enc, payload = c.enc|encZlib, zb
		}
	}
	return enc, bpp, payload
}

func decodePlane(dst *[BlockCells]uint8, enc, bpp uint8, payload []byte) error {
	if bpp == 0 || bpp > 8 {
		return fmt.Errorf("%w: plane bpp %d", ErrCorrupt, bpp)
	}
	if enc&encZlib != 0 {
		var err error
		if payload, err = zlibDecompress(payload); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	var stream [BlockCells]uint8
	switch enc &^ encZlib {
	case encDense:
		br := newBitReader(payload)
		for i := range stream {
			v, err := br.readBits(bpp)
			if err != nil {
				return fmt.Errorf("%w: dense plane: %v", ErrCorrupt, err)
			}
			stream[i] = uint8(v)
		}
	case encSparse:
		br := newBitReader(payload)
		cnt, err := br.readBits(16)
		if err != nil {
			return fmt.Errorf("%w: sparse plane: %v", ErrCorrupt, err)
		}
		for i := 0; i < int(cnt); i++ {
			idx, err := br.readBits(12)
			if err != nil {
				return fmt.Errorf("%w: sparse plane: %v", ErrCorrupt, err)
			}
			v, err := br.readBits(bpp)
			if err != nil {
				return fmt.Errorf("%w: sparse plane: %v", ErrCorrupt, err)
			}
			stream[idx] = uint8(v)
		}
	case encBitmap:
		if len(payload) < bitmapBytes {
			return fmt.Errorf("%w: bitmap plane too short", ErrCorrupt)
		}
		bitmap := payload[:bitmapBytes]
		br := newBitReader(payload[bitmapBytes:])
		for i := range stream {
			if (bitmap[i>>3]>>(uint(i)&7))&1 == 0 {
				continue
			}
			v, err := br.readBits(bpp)
			if err != nil {
				return fmt.Errorf("%w: bitmap plane: %v", ErrCorrupt, err)
			}
			stream[i] = uint8(v)
		}
	default:
		return fmt.Errorf("%w: unknown plane encoding %d", ErrCorrupt, enc)
	}
	for rank, lin := range mortonOrder {
		dst[lin] = stream[rank]
	}
	return nil
}

func zlibCompress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zlibDecompress(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// bitWriter packs little-endian bit fields.
type bitWriter struct {
	buf []byte
	acc uint64
	n   uint8
}

func newBitWriter(sizeHint int) *bitWriter {
	return &bitWriter{buf: make([]byte, 0, sizeHint+1)}
}

func (w *bitWriter) writeBits(v uint64, bits uint8) {
	w.acc |= (v & ((1 << bits) - 1)) << w.n
	w.n += bits
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc, w.n = 0, 0
	}
	return w.buf
}

type bitReader struct {
	data []byte
	acc  uint64
	n    uint8
	pos  int
}

func newBitReader(b []byte) *bitReader { return &bitReader{data: b} }

func (r *bitReader) readBits(bits uint8) (uint64, error) {
	for r.n < bits {
		if r.pos >= len(r.data) {
			return 0, io.ErrUnexpectedEOF
		}
		r.acc |= uint64(r.data[r.pos]) << r.n
		r.n += 8
		r.pos++
	}
	v := r.acc & ((1 << bits) - 1)
	r.acc >>= bits
	r.n -= bits
	return v, nil
}
