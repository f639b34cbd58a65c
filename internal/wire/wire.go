// Package wire frames cached HTTP responses for byte-level providers.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const version byte = 2

const headerLen = 4 + 1 + 8 + 2 + 4

var (
	ErrCorrupt = errors.New("restcache: corrupt cache entry")
	magic4     = [...]byte{'R', 'S', 'T', 'C'}
)

// Entry is one cached response: the scope generation it was observed
// under, the HTTP status and the encoded body.
type Entry struct {
	Gen     uint64
	Status  int
	Payload []byte
}

// Encode lays out: magic(4) | ver(1) | gen(u64 be) | status(u16 be) | plen(u32 be) | payload.
func Encode(e Entry) ([]byte, error) {
	if e.Status < 0 || e.Status > math.MaxUint16 {
		return nil, errors.New("restcache: status out of range")
	}
	if uint64(len(e.Payload)) > math.MaxUint32 {
		return nil, errors.New("restcache: payload too large to frame")
	}
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))
	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], e.Gen)
	buf.Write(u8[:])

	var u2 [2]byte
	binary.BigEndian.PutUint16(u2[:], uint16(e.Status))
	buf.Write(u2[:])

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

// Decode parses an Encode result. Trailing bytes are rejected.
// Payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	off := 5
	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	status := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	plen := int64(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen != int64(len(b)-off) {
		return Entry{}, ErrCorrupt
	}
	return Entry{Gen: gen, Status: status, Payload: b[off:]}, nil
}
