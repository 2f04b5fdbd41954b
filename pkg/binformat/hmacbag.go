package binformat

import "fmt"

// HMACSize is the length of a single block-content-address HMAC.
const HMACSize = 32

// EncodeHMACBag concatenates hmacs with no separators, for embedding as a
// sync session tar entry's body.
func EncodeHMACBag(hmacs [][]byte) ([]byte, error) {
	out := make([]byte, 0, len(hmacs)*HMACSize)
	for i, h := range hmacs {
		if len(h) != HMACSize {
			return nil, fmt.Errorf("binformat: hmac %d has length %d, want %d", i, len(h), HMACSize)
		}
		out = append(out, h...)
	}
	return out, nil
}

// DecodeHMACBag splits a contiguous concatenation of HMACs (as produced by
// EncodeHMACBag) back into individual 32-byte values.
func DecodeHMACBag(data []byte) ([][]byte, error) {
	if len(data)%HMACSize != 0 {
		return nil, fmt.Errorf("binformat: hmac bag length %d is not a multiple of %d", len(data), HMACSize)
	}
	n := len(data) / HMACSize
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = append([]byte(nil), data[i*HMACSize:(i+1)*HMACSize]...)
	}
	return out, nil
}
