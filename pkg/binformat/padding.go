package binformat

import (
	"encoding/binary"
	"fmt"
)

// maxPaddedSize bounds how far Pad will round up to the next power of two.
// Far above the 64 KiB v2 max chunk size plus any v1-legacy-sized plaintext
// this package is ever asked to frame; purely an implementation ceiling,
// never surfaced to a user.
const maxPaddedSize = 1 << 20 // 1 MiB

// Pad prefixes data with its 4-byte little-endian length and zero-pads to
// the next power-of-two boundary at or above len(data)+4, capped at
// maxPaddedSize. Input whose framed length len(data)+4 already exceeds
// maxPaddedSize is framed at exactly that length, with no padding. Version
// 02 framing only.
func Pad(data []byte) []byte {
	total := len(data) + 4
	target := nextPow2(total)
	if target > maxPaddedSize {
		if total > maxPaddedSize {
			target = total
		} else {
			target = maxPaddedSize
		}
	}

	out := make([]byte, target)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(data)))
	copy(out[4:], data)
	return out
}

// Unpad reads the length prefix and returns the exact original slice.
func Unpad(padded []byte) ([]byte, error) {
	if len(padded) < 4 {
		return nil, fmt.Errorf("binformat: padded input too short: %d bytes", len(padded))
	}
	length := binary.LittleEndian.Uint32(padded[0:4])
	end := 4 + int(length)
	if end > len(padded) {
		return nil, fmt.Errorf("binformat: length prefix %d exceeds padded input size %d", length, len(padded))
	}
	return padded[4:end], nil
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
