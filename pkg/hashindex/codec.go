package hashindex

import "encoding/binary"

// Codec is the fixed-width encode/decode capability a key or value type
// must provide so the hash table can lay it out inside a page's raw byte
// buffer. Per-width variants below are monomorphised by Go's generics
// rather than dispatched through an interface hierarchy — the "capability
// set" the design calls for is these three functions, parametrized once
// per concrete K/V pair at compile time.
type Codec[T any] interface {
	// Size is the fixed number of bytes Encode always writes and Decode
	// always reads.
	Size() int
	Encode(dst []byte, v T)
	Decode(src []byte) T
}

// Int64Codec encodes int64 keys/values as 8 little-endian bytes.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }
func (Int64Codec) Encode(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}
func (Int64Codec) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// Int32Codec encodes int32 keys/values as 4 little-endian bytes.
type Int32Codec struct{}

func (Int32Codec) Size() int { return 4 }
func (Int32Codec) Encode(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}
func (Int32Codec) Decode(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

// FixedStringCodec encodes strings into a zero-padded, NUL-terminated
// field of Width bytes. Strings longer than Width-1 are truncated.
type FixedStringCodec struct {
	Width int
}

func (c FixedStringCodec) Size() int { return c.Width }

func (c FixedStringCodec) Encode(dst []byte, v string) {
	for i := range dst[:c.Width] {
		dst[i] = 0
	}
	n := len(v)
	if n > c.Width-1 {
		n = c.Width - 1
	}
	copy(dst, v[:n])
}

func (c FixedStringCodec) Decode(src []byte) string {
	n := 0
	for n < c.Width && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

// RID is a tuple's on-disk location: the page it lives on plus its slot
// index within that page's slot directory. It is the canonical value type
// a secondary index like this one points at.
type RID struct {
	PageID int32
	SlotID uint32
}

// RIDCodec encodes an RID as 8 bytes: a 4-byte page id, a 4-byte slot id.
type RIDCodec struct{}

func (RIDCodec) Size() int { return 8 }
func (RIDCodec) Encode(dst []byte, v RID) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(v.PageID))
	binary.LittleEndian.PutUint32(dst[4:8], v.SlotID)
}
func (RIDCodec) Decode(src []byte) RID {
	return RID{
		PageID: int32(binary.LittleEndian.Uint32(src[0:4])),
		SlotID: binary.LittleEndian.Uint32(src[4:8]),
	}
}
