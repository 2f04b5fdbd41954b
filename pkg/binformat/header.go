// Package binformat encodes and decodes the on-wire envelope shared by
// blocks and sync sessions (C2): an 8-byte header, a 48-byte wrapped key, a
// 24-byte nonce, then the variable-length wrapped payload.
package binformat

import (
	"bytes"
	"fmt"
)

// HeaderSize is the length of the fixed envelope header.
const HeaderSize = 8

// WrappedKeySize and NonceSize give the fixed-width fields immediately
// following the header.
const (
	WrappedKeySize = 48
	NonceSize      = 24
)

var magic = [2]byte{'s', 'd'}

// FileType distinguishes a block envelope from a sync session envelope.
type FileType byte

const (
	FileTypeBlock   FileType = 'b'
	FileTypeSession FileType = 's'
)

// Version is the on-wire format version, carried as the ASCII digits "01"
// or "02".
type Version int

const (
	Version1 Version = 1
	Version2 Version = 2
)

func (v Version) ascii() [2]byte {
	switch v {
	case Version1:
		return [2]byte{'0', '1'}
	case Version2:
		return [2]byte{'0', '2'}
	default:
		return [2]byte{'0', '0'}
	}
}

func versionFromASCII(b [2]byte) (Version, error) {
	switch b {
	case [2]byte{'0', '1'}:
		return Version1, nil
	case [2]byte{'0', '2'}:
		return Version2, nil
	default:
		return 0, fmt.Errorf("binformat: unrecognized version %q", b)
	}
}

// Flags is the header's bitfield: exactly one of Stable/Beta/Nightly plus
// optionally Production and Compressed.
type Flags byte

const (
	FlagStable     Flags = 0x01
	FlagBeta       Flags = 0x02
	FlagNightly    Flags = 0x04
	FlagProduction Flags = 0x08
	FlagCompressed Flags = 0x10
)

func (f Flags) Compressed() bool { return f&FlagCompressed != 0 }
func (f Flags) Production() bool { return f&FlagProduction != 0 }

// Header is the parsed 8-byte envelope header.
type Header struct {
	Type    FileType
	Version Version
	Flags   Flags
}

var reservedBytes = [2]byte{'0', '0'}

// Encode serializes h to its 8-byte wire form.
func (h Header) Encode() []byte {
	out := make([]byte, HeaderSize)
	out[0], out[1] = magic[0], magic[1]
	out[2] = byte(h.Type)
	v := h.Version.ascii()
	out[3], out[4] = v[0], v[1]
	out[5] = byte(h.Flags)
	out[6], out[7] = reservedBytes[0], reservedBytes[1]
	return out
}

// DecodeHeader parses the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("binformat: header too short: %d bytes", len(b))
	}
	if b[0] != magic[0] || b[1] != magic[1] {
		return Header{}, fmt.Errorf("binformat: bad magic %q", b[0:2])
	}

	var typ FileType
	switch FileType(b[2]) {
	case FileTypeBlock, FileTypeSession:
		typ = FileType(b[2])
	default:
		return Header{}, fmt.Errorf("binformat: unrecognized file type %q", b[2])
	}

	version, err := versionFromASCII([2]byte{b[3], b[4]})
	if err != nil {
		return Header{}, err
	}

	return Header{Type: typ, Version: version, Flags: Flags(b[5])}, nil
}

// Envelope is a fully parsed on-wire object: header plus its fixed-width
// key/nonce fields and variable-length payload.
type Envelope struct {
	Header      Header
	WrappedKey  []byte // 48 bytes
	Nonce       []byte // 24 bytes
	WrappedData []byte
}

// Encode serializes the full envelope.
func (e Envelope) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(e.Header.Encode())
	buf.Write(e.WrappedKey)
	buf.Write(e.Nonce)
	buf.Write(e.WrappedData)
	return buf.Bytes()
}

// DecodeEnvelope parses a complete on-wire object produced by Encode.
func DecodeEnvelope(b []byte) (Envelope, error) {
	header, err := DecodeHeader(b)
	if err != nil {
		return Envelope{}, err
	}

	want := HeaderSize + WrappedKeySize + NonceSize
	if len(b) < want {
		return Envelope{}, fmt.Errorf("binformat: envelope too short: need at least %d bytes, got %d", want, len(b))
	}

	wrappedKey := append([]byte(nil), b[HeaderSize:HeaderSize+WrappedKeySize]...)
	nonceStart := HeaderSize + WrappedKeySize
	nonce := append([]byte(nil), b[nonceStart:nonceStart+NonceSize]...)
	data := append([]byte(nil), b[nonceStart+NonceSize:]...)

	return Envelope{Header: header, WrappedKey: wrappedKey, Nonce: nonce, WrappedData: data}, nil
}
