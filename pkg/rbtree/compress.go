package rbtree

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// compressColumn packs a handle column little-endian into a single LZ4 block.
func compressColumn(column []uint32) ([]byte, error) {
	if len(column) == 0 {
		return nil, nil
	}

	raw := make([]byte, 0, len(column)*uint32ByteSize)
	for _, value := range column {
		raw = binary.LittleEndian.AppendUint32(raw, value)
	}

	packed := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, packed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	if written == 0 {
		return nil, fmt.Errorf("%w: lz4 produced an empty block", ErrCorruptColumn)
	}

	return packed[:written], nil
}

// decompressColumn restores a column of exactly length values.
func decompressColumn(packed []byte, length int) ([]uint32, error) {
	column := make([]uint32, length)
	if length == 0 {
		return column, nil
	}

	raw := make([]byte, length*uint32ByteSize)

	read, err := lz4.UncompressBlock(packed, raw)
	if err != nil {
		return nil, fmt.Errorf("lz4 uncompress: %w", err)
	}

	if read != len(raw) {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrCorruptColumn, read, len(raw))
	}

	for idx := range column {
		column[idx] = binary.LittleEndian.Uint32(raw[idx*uint32ByteSize:])
	}

	return column, nil
}
