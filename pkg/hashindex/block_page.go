package hashindex

import "github.com/mnohosten/laura-db/pkg/storage"

// BlockArraySize computes how many (key, value) slots of the given widths
// fit in one page alongside the two bitmaps (occupied, readable) the block
// needs to track them. It is the generic equivalent of the original's
// compile-time BLOCK_ARRAY_SIZE constant: here it is derived once, at
// construction time, from whatever Codec pair the caller instantiates the
// table with.
func BlockArraySize(keySize, valSize int) int {
	slot := keySize + valSize
	if slot <= 0 {
		return 0
	}
	cap := storage.PageSize / slot
	for cap > 0 {
		bitmapBytes := (cap + 7) / 8
		if 2*bitmapBytes+cap*slot <= storage.PageSize {
			return cap
		}
		cap--
	}
	return 0
}

// BlockPage is an accessor over a pinned frame holding one bucket's worth of
// linear-probe slots: an occupied bitmap, a readable bitmap, and a packed
// array of (key, value) pairs. occupied is set the first time a slot is
// ever written and is never cleared again — it is what lets a probe that
// crosses a removed slot keep scanning instead of stopping short. readable
// is cleared on Remove, turning the slot into a tombstone.
type BlockPage[K any, V any] struct {
	frame    *storage.Frame
	keyCodec Codec[K]
	valCodec Codec[V]

	capacity    int
	bitmapBytes int
	slotsOff    int
	slotWidth   int
}

// NewBlockPageView wraps frame as a block page laid out for the given
// key/value codecs. The layout (capacity, bitmap sizes, slot offsets) is
// fully determined by the codec widths, so no extra metadata is stored on
// the page itself beyond the bitmaps and slots.
func NewBlockPageView[K any, V any](frame *storage.Frame, keyCodec Codec[K], valCodec Codec[V]) *BlockPage[K, V] {
	capacity := BlockArraySize(keyCodec.Size(), valCodec.Size())
	bitmapBytes := (capacity + 7) / 8
	return &BlockPage[K, V]{
		frame:       frame,
		keyCodec:    keyCodec,
		valCodec:    valCodec,
		capacity:    capacity,
		bitmapBytes: bitmapBytes,
		slotsOff:    2 * bitmapBytes,
		slotWidth:   keyCodec.Size() + valCodec.Size(),
	}
}

func (b *BlockPage[K, V]) Capacity() int { return b.capacity }

func (b *BlockPage[K, V]) occupiedBit(i int) bool {
	return getBit(b.frame.Data[0:b.bitmapBytes], i)
}

func (b *BlockPage[K, V]) readableBit(i int) bool {
	return getBit(b.frame.Data[b.bitmapBytes:2*b.bitmapBytes], i)
}

func (b *BlockPage[K, V]) IsOccupied(i int) bool { return b.occupiedBit(i) }
func (b *BlockPage[K, V]) IsReadable(i int) bool { return b.readableBit(i) }

func (b *BlockPage[K, V]) KeyAt(i int) K {
	off := b.slotsOff + i*b.slotWidth
	return b.keyCodec.Decode(b.frame.Data[off : off+b.keyCodec.Size()])
}

func (b *BlockPage[K, V]) ValueAt(i int) V {
	off := b.slotsOff + i*b.slotWidth + b.keyCodec.Size()
	return b.valCodec.Decode(b.frame.Data[off : off+b.valCodec.Size()])
}

// Insert writes (key, value) into slot i and marks it occupied and
// readable. Returns false without modifying anything if the slot is
// already readable (live). Insert itself only guards against clobbering a
// live slot; duplicate (key, value) detection is left to the caller, which
// compares the live slot's pair after Insert returns false.
func (b *BlockPage[K, V]) Insert(i int, key K, value V) bool {
	if b.readableBit(i) {
		return false
	}
	off := b.slotsOff + i*b.slotWidth
	b.keyCodec.Encode(b.frame.Data[off:off+b.keyCodec.Size()], key)
	b.valCodec.Encode(b.frame.Data[off+b.keyCodec.Size():off+b.slotWidth], value)
	setBit(b.frame.Data[0:b.bitmapBytes], i)
	setBit(b.frame.Data[b.bitmapBytes:2*b.bitmapBytes], i)
	return true
}

// Remove clears slot i's readable bit, turning it into a tombstone. The
// occupied bit is left set so later probes still know to scan past it.
func (b *BlockPage[K, V]) Remove(i int) {
	clearBit(b.frame.Data[b.bitmapBytes:2*b.bitmapBytes], i)
}

func getBit(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func setBit(bitmap []byte, i int) {
	bitmap[i/8] |= 1 << uint(i%8)
}

func clearBit(bitmap []byte, i int) {
	bitmap[i/8] &^= 1 << uint(i%8)
}
