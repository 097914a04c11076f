// Package hashindex implements a disk-backed linear-probing hash table in
// the style of a secondary index: keys hash into a fixed number of buckets,
// each bucket backed by one block page, with collisions resolved by probing
// forward (wrapping across block boundaries) until a free or matching slot
// turns up. A header page holds the directory of block page ids.
package hashindex

import (
	"fmt"
	"sync"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// LinearProbeHashTable is a generic hash index over a BufferPoolManager.
// K and V must each have a Codec so their fixed-width encoding determines
// the table's block capacity; V must be comparable so duplicate
// (key, value) pairs can be recognized without a custom equality hook.
type LinearProbeHashTable[K any, V comparable] struct {
	tableLatch sync.RWMutex

	bpm            *storage.BufferPoolManager
	headerPageID   storage.PageID
	hashFn         HashFunction[K]
	comparator     KeyComparator[K]
	keyCodec       Codec[K]
	valCodec       Codec[V]
	blockArraySize int
	resizeListener ResizeListener
}

// ResizeListener receives a best-effort notification whenever Resize
// swaps in a new header page. Like storage.EvictionListener, it must not
// block — it is called while Resize still holds the table's write latch.
// Used to feed the admin websocket event stream; nil is the common case.
type ResizeListener interface {
	OnResize(oldHeader, newHeader storage.PageID, numBuckets int)
}

// SetResizeListener installs (or clears, with nil) the listener notified of
// Resize calls. Not safe to call concurrently with Resize itself.
func (t *LinearProbeHashTable[K, V]) SetResizeListener(l ResizeListener) {
	t.resizeListener = l
}

// NewLinearProbeHashTable allocates a header page and numBuckets block
// pages and returns a table ready to serve GetValue/Insert/Remove. numBuckets
// is clamped to at least 1.
func NewLinearProbeHashTable[K any, V comparable](
	bpm *storage.BufferPoolManager,
	numBuckets int,
	keyCodec Codec[K],
	valCodec Codec[V],
	hashFn HashFunction[K],
	comparator KeyComparator[K],
) (*LinearProbeHashTable[K, V], error) {
	blockArraySize := BlockArraySize(keyCodec.Size(), valCodec.Size())
	if blockArraySize < 1 {
		return nil, fmt.Errorf("hashindex: key(%d)+value(%d) bytes too wide for a %d-byte block page",
			keyCodec.Size(), valCodec.Size(), storage.PageSize)
	}
	if numBuckets < 1 {
		numBuckets = 1
	}

	headerPageID, headerFrame, err := bpm.NewPage()
	if err != nil {
		return nil, fmt.Errorf("hashindex: allocate header page: %w", err)
	}
	headerFrame.Latch.WLatch()
	header := LoadHeaderPage(headerFrame)
	header.SetPageId(headerPageID)
	header.SetSize(numBuckets)
	for i := 0; i < numBuckets; i++ {
		blockID, _, err := bpm.NewPage()
		if err != nil {
			headerFrame.Latch.WUnlatch()
			bpm.UnpinPage(headerPageID, true)
			return nil, fmt.Errorf("hashindex: allocate block page %d/%d: %w", i, numBuckets, err)
		}
		header.AddBlockPageId(blockID)
		bpm.UnpinPage(blockID, false)
	}
	headerFrame.Latch.WUnlatch()
	bpm.UnpinPage(headerPageID, true)

	return &LinearProbeHashTable[K, V]{
		bpm:            bpm,
		headerPageID:   headerPageID,
		hashFn:         hashFn,
		comparator:     comparator,
		keyCodec:       keyCodec,
		valCodec:       valCodec,
		blockArraySize: blockArraySize,
	}, nil
}

// Capacity returns the number of (key, value) slots in a single block page
// — a function of the key/value codec widths alone, fixed for the table's
// lifetime even across Resize.
func (t *LinearProbeHashTable[K, V]) Capacity() int {
	return t.blockArraySize
}

// NumBuckets returns the number of block pages in the table's current
// directory. Total slot capacity is NumBuckets() * Capacity().
func (t *LinearProbeHashTable[K, V]) NumBuckets() (int, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()
	hdr, err := t.fetchHeader(false)
	if err != nil {
		return 0, err
	}
	defer hdr.release()
	return hdr.header.NumBlocks(), nil
}

// HeaderPageId reports the page id of the table's current header — useful
// for admin/metrics surfaces, and for tests asserting Resize swapped it.
func (t *LinearProbeHashTable[K, V]) HeaderPageId() storage.PageID {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()
	return t.headerPageID
}

func (t *LinearProbeHashTable[K, V]) fetchHeader(write bool) (*pinnedHeader, error) {
	frame, err := t.bpm.FetchPage(t.headerPageID)
	if err != nil {
		return nil, err
	}
	if write {
		frame.Latch.WLatch()
	} else {
		frame.Latch.RLatch()
	}
	return &pinnedHeader{
		bpm:    t.bpm,
		pageID: t.headerPageID,
		frame:  frame,
		header: LoadHeaderPage(frame),
		write:  write,
	}, nil
}

func (t *LinearProbeHashTable[K, V]) fetchBlock(pageID storage.PageID, write bool) (*pinnedBlock[K, V], error) {
	frame, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	if write {
		frame.Latch.WLatch()
	} else {
		frame.Latch.RLatch()
	}
	return &pinnedBlock[K, V]{
		bpm:    t.bpm,
		pageID: pageID,
		frame:  frame,
		view:   NewBlockPageView[K, V](frame, t.keyCodec, t.valCodec),
		write:  write,
	}, nil
}

// getIndex hashes key into [0, numBlocks*blockArraySize) and splits the
// result into a block index and an in-block bucket index.
func (t *LinearProbeHashTable[K, V]) getIndex(key K, numBlocks int) (index, blockInd, bucketInd int) {
	total := uint64(numBlocks) * uint64(t.blockArraySize)
	h := t.hashFn(key) % total
	index = int(h)
	blockInd = index / t.blockArraySize
	bucketInd = index % t.blockArraySize
	return
}

// GetValue returns every value stored under key. The second return value is
// false if none were found.
func (t *LinearProbeHashTable[K, V]) GetValue(_ *Transaction, key K) ([]V, bool, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	hdr, err := t.fetchHeader(false)
	if err != nil {
		return nil, false, err
	}
	defer hdr.release()

	numBlocks := hdr.header.NumBlocks()
	index, blockInd, bucketInd := t.getIndex(key, numBlocks)

	blockID := hdr.header.GetBlockPageId(blockInd)
	blk, err := t.fetchBlock(blockID, false)
	if err != nil {
		return nil, false, err
	}

	var result []V
	for blk.view.IsOccupied(bucketInd) {
		if blk.view.IsReadable(bucketInd) && t.comparator(blk.view.KeyAt(bucketInd), key) == 0 {
			result = append(result, blk.view.ValueAt(bucketInd))
		}
		bucketInd++
		if (blockInd*t.blockArraySize+bucketInd)%(numBlocks*t.blockArraySize) == index {
			break
		}
		if bucketInd == t.blockArraySize {
			bucketInd = 0
			blk.release(false)
			blockInd++
			if blockInd == numBlocks {
				blockInd = 0
			}
			blockID = hdr.header.GetBlockPageId(blockInd)
			blk, err = t.fetchBlock(blockID, false)
			if err != nil {
				return nil, false, err
			}
		}
	}
	blk.release(false)
	return result, len(result) > 0, nil
}

// insertCore runs the probe sequence for (key, value) against whichever
// header/layout is current, assuming the caller already holds tableLatch in
// whatever mode is appropriate for its context. wrapped reports that the
// probe returned to its starting slot without finding room — the table is
// full and needs a Resize.
func (t *LinearProbeHashTable[K, V]) insertCore(key K, value V) (ok bool, wrapped bool, err error) {
	hdr, err := t.fetchHeader(false)
	if err != nil {
		return false, false, err
	}
	defer hdr.release()

	numBlocks := hdr.header.NumBlocks()
	index, blockInd, bucketInd := t.getIndex(key, numBlocks)

	blockID := hdr.header.GetBlockPageId(blockInd)
	blk, err := t.fetchBlock(blockID, true)
	if err != nil {
		return false, false, err
	}

	for {
		if blk.view.Insert(bucketInd, key, value) {
			blk.release(true)
			return true, false, nil
		}
		if t.comparator(blk.view.KeyAt(bucketInd), key) == 0 && blk.view.ValueAt(bucketInd) == value {
			blk.release(false)
			return false, false, nil
		}
		bucketInd++
		// The position one past the last slot of the last block is slot 0,
		// so the modulo lets a probe that started at index 0 detect the wrap.
		if (blockInd*t.blockArraySize+bucketInd)%(numBlocks*t.blockArraySize) == index {
			blk.release(false)
			return false, true, nil
		}
		if bucketInd == t.blockArraySize {
			bucketInd = 0
			blk.release(false)
			blockInd++
			if blockInd == numBlocks {
				blockInd = 0
			}
			blockID = hdr.header.GetBlockPageId(blockInd)
			blk, err = t.fetchBlock(blockID, true)
			if err != nil {
				return false, false, err
			}
		}
	}
}

// Insert adds (key, value). Returns false without error if that exact pair
// is already present. When the probe wraps — the table is full — Insert
// releases the table latch entirely, calls Resize, then retries once
// against whatever layout Resize left behind.
func (t *LinearProbeHashTable[K, V]) Insert(_ *Transaction, key K, value V) (bool, error) {
	t.tableLatch.RLock()
	ok, wrapped, err := t.insertCore(key, value)
	t.tableLatch.RUnlock()
	if err != nil {
		return false, err
	}
	if !wrapped {
		return ok, nil
	}

	curSize, err := t.GetSize()
	if err != nil {
		return false, err
	}
	if err := t.Resize(curSize); err != nil {
		return false, fmt.Errorf("insert: resize full table: %w", err)
	}

	t.tableLatch.RLock()
	ok, wrapped, err = t.insertCore(key, value)
	t.tableLatch.RUnlock()
	if err != nil {
		return false, err
	}
	if wrapped {
		return false, fmt.Errorf("insert: probe wrapped again immediately after resize")
	}
	return ok, nil
}

// Remove deletes the (key, value) pair if present. Returns false if it was
// never there (or already removed).
func (t *LinearProbeHashTable[K, V]) Remove(_ *Transaction, key K, value V) (bool, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	hdr, err := t.fetchHeader(false)
	if err != nil {
		return false, err
	}
	defer hdr.release()

	numBlocks := hdr.header.NumBlocks()
	index, blockInd, bucketInd := t.getIndex(key, numBlocks)

	blockID := hdr.header.GetBlockPageId(blockInd)
	blk, err := t.fetchBlock(blockID, true)
	if err != nil {
		return false, err
	}

	for blk.view.IsOccupied(bucketInd) {
		if blk.view.IsReadable(bucketInd) && t.comparator(blk.view.KeyAt(bucketInd), key) == 0 && blk.view.ValueAt(bucketInd) == value {
			blk.view.Remove(bucketInd)
			blk.release(true)
			return true, nil
		}
		bucketInd++
		if (blockInd*t.blockArraySize+bucketInd)%(numBlocks*t.blockArraySize) == index {
			break
		}
		if bucketInd == t.blockArraySize {
			bucketInd = 0
			blk.release(false)
			blockInd++
			if blockInd == numBlocks {
				blockInd = 0
			}
			blockID = hdr.header.GetBlockPageId(blockInd)
			blk, err = t.fetchBlock(blockID, true)
			if err != nil {
				return false, err
			}
		}
	}
	blk.release(false)
	return false, nil
}

// GetSize returns the table's current total capacity (blocks * block
// array size), not its live entry count.
func (t *LinearProbeHashTable[K, V]) GetSize() (int, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()
	hdr, err := t.fetchHeader(false)
	if err != nil {
		return 0, err
	}
	defer hdr.release()
	return t.blockArraySize * hdr.header.NumBlocks(), nil
}

// Resize doubles the table's capacity relative to initialSize, migrates
// every live entry from the old layout into the new one, and frees the old
// header and block pages.
//
// The old header's page id and block directory are read and cached *before*
// any new page is allocated. Deciding capacity and directory contents from
// the header at t.headerPageID — read again only after t.headerPageID has
// already been repointed at the new header — would silently read the new,
// still-empty header back as if it were the old one. Caching first closes
// that window.
func (t *LinearProbeHashTable[K, V]) Resize(initialSize int) error {
	t.tableLatch.Lock()
	defer t.tableLatch.Unlock()

	numBucketsNew := (2 * initialSize) / t.blockArraySize
	if numBucketsNew < 1 {
		numBucketsNew = 1
	}

	oldHeaderPageID := t.headerPageID
	oldHdr, err := t.fetchHeader(false)
	if err != nil {
		return err
	}
	oldNumBlocks := oldHdr.header.NumBlocks()
	oldBlockIDs := make([]storage.PageID, oldNumBlocks)
	for i := 0; i < oldNumBlocks; i++ {
		oldBlockIDs[i] = oldHdr.header.GetBlockPageId(i)
	}
	oldHdr.release()

	newHeaderPageID, newHeaderFrame, err := t.bpm.NewPage()
	if err != nil {
		return fmt.Errorf("resize: allocate header: %w", err)
	}
	newHeaderFrame.Latch.WLatch()
	newHeader := LoadHeaderPage(newHeaderFrame)
	newHeader.SetPageId(newHeaderPageID)
	newHeader.SetSize(numBucketsNew)
	for i := 0; i < numBucketsNew; i++ {
		blockID, _, err := t.bpm.NewPage()
		if err != nil {
			newHeaderFrame.Latch.WUnlatch()
			t.bpm.UnpinPage(newHeaderPageID, true)
			return fmt.Errorf("resize: allocate block %d/%d: %w", i, numBucketsNew, err)
		}
		newHeader.AddBlockPageId(blockID)
		t.bpm.UnpinPage(blockID, false)
	}
	newHeaderFrame.Latch.WUnlatch()
	t.bpm.UnpinPage(newHeaderPageID, true)

	// From here on insertCore (called directly below, under our own
	// exclusive tableLatch — not through the public Insert, which would
	// deadlock trying to re-acquire it) probes against the new layout.
	t.headerPageID = newHeaderPageID
	if t.resizeListener != nil {
		t.resizeListener.OnResize(oldHeaderPageID, newHeaderPageID, numBucketsNew)
	}

	for _, oldBlockID := range oldBlockIDs {
		frame, err := t.bpm.FetchPage(oldBlockID)
		if err != nil {
			return fmt.Errorf("resize: fetch old block %s: %w", oldBlockID, err)
		}
		frame.Latch.RLatch()
		view := NewBlockPageView[K, V](frame, t.keyCodec, t.valCodec)
		for i := 0; i < t.blockArraySize; i++ {
			if !view.IsReadable(i) {
				continue
			}
			k := view.KeyAt(i)
			v := view.ValueAt(i)
			_, wrapped, err := t.insertCore(k, v)
			if err != nil {
				frame.Latch.RUnlatch()
				t.bpm.UnpinPage(oldBlockID, false)
				return fmt.Errorf("resize: migrate entry: %w", err)
			}
			if wrapped {
				frame.Latch.RUnlatch()
				t.bpm.UnpinPage(oldBlockID, false)
				return fmt.Errorf("resize: new layout filled during migration, this should not happen at 2x capacity")
			}
		}
		frame.Latch.RUnlatch()
		t.bpm.UnpinPage(oldBlockID, false)
		t.bpm.DeletePage(oldBlockID)
	}
	t.bpm.DeletePage(oldHeaderPageID)
	return nil
}
