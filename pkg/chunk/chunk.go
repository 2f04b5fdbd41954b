package chunk

import (
	"bufio"
	"io"
)

// Chunk is one content-defined slice of the input stream.
type Chunk struct {
	Offset int64
	Data   []byte
}

// Chunker produces a lazy, finite, non-restartable sequence of chunks from
// r using a Rabin rolling hash. For a given (content, version, tweak key)
// the sequence is bit-identical, which is what makes cross-sync dedup work.
type Chunker struct {
	r      *bufio.Reader
	params Params
	hash   *rollingHash

	offset int64
	done   bool
}

// New builds a Chunker reading from r, using the chunking parameters for
// version and seeding the rolling hash from tweakKey.
func New(r io.Reader, tweakKey []byte, version Version) *Chunker {
	params := ParamsForVersion(version)
	return &Chunker{
		r:      bufio.NewReaderSize(r, 64*1024),
		params: params,
		hash:   newRollingHash(params.windowSize(), tweakSeed(tweakKey)),
	}
}

// Next returns the next chunk, or io.EOF once the stream is exhausted.
func (c *Chunker) Next() (Chunk, error) {
	if c.done {
		return Chunk{}, io.EOF
	}

	startOffset := c.offset
	var buf []byte

	// Prefill the rolling hash window from the start of this chunk; no
	// separator can occur while the window is still filling or within the
	// version's minimum chunk size, since the hash wouldn't yet reflect a
	// full window of this chunk's own content.
	skip := c.params.windowSize()
	if c.params.MinChunk > skip {
		skip = c.params.MinChunk
	}

	prefillBuf := make([]byte, skip)
	n, err := io.ReadFull(c.r, prefillBuf)
	buf = append(buf, prefillBuf[:n]...)
	c.offset += int64(n)
	if n > 0 {
		windowStart := n - c.params.windowSize()
		if windowStart < 0 {
			windowStart = 0
		}
		c.hash.prefill(prefillBuf[windowStart:n])
	}
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Chunk{}, err
	}
	if n < skip {
		// Stream ended before we even finished skipping; this is the final
		// (and possibly only) chunk.
		c.done = true
		if len(buf) == 0 {
			return Chunk{}, io.EOF
		}
		return Chunk{Offset: startOffset, Data: buf}, nil
	}

	mask := c.params.mask()
	for {
		b, err := c.r.ReadByte()
		if err == io.EOF {
			c.done = true
			return Chunk{Offset: startOffset, Data: buf}, nil
		}
		if err != nil {
			return Chunk{}, err
		}

		buf = append(buf, b)
		c.offset++
		h := c.hash.slide(b)

		atMax := c.params.MaxChunk > 0 && len(buf) >= c.params.MaxChunk
		if atMax || h&mask == mask {
			return Chunk{Offset: startOffset, Data: buf}, nil
		}
	}
}
