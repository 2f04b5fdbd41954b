package cache

import (
	"encoding/binary"
	"fmt"
)

// encodeEntry serializes an Entry's Size, CreatedAt, and Confirmed flag (the
// HMAC is already the index key, so it isn't repeated in the value).
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 17)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.Size))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(e.CreatedAt))
	if e.Confirmed {
		buf[16] = 1
	}
	return buf
}

func decodeEntry(buf []byte) (Entry, error) {
	if len(buf) != 17 {
		return Entry{}, fmt.Errorf("cache: malformed index entry: %d bytes", len(buf))
	}
	return Entry{
		Size:      int64(binary.LittleEndian.Uint64(buf[0:8])),
		CreatedAt: int64(binary.LittleEndian.Uint64(buf[8:16])),
		Confirmed: buf[16] != 0,
	}, nil
}
