// Package tableheap is a minimal sequential-storage client of
// BufferPoolManager: tuples are packed densely into a singly linked chain
// of pages, each appended to only at the tail. It exists to exercise the
// buffer pool under a realistic caller — the kind of thing a real executor
// (InsertExecutor/SeqScanExecutor) would drive — rather than a synthetic
// test harness. It is explicitly a test fixture: no catalog, no schema, no
// predicate evaluation, no query planning.
package tableheap

import (
	"encoding/binary"
	"fmt"

	"github.com/mnohosten/laura-db/pkg/hashindex"
	"github.com/mnohosten/laura-db/pkg/storage"
)

const (
	// pageHeaderSize holds the tuple count (uint32) and the next page id
	// (int32, storage.InvalidPageID when this is the tail).
	pageHeaderSize   = 8
	countOffset      = 0
	nextPageIDOffset = 4
)

// TableHeap stores values of type T packed into fixed-width slots across a
// chain of pages. It never reclaims space from a Delete-like operation
// because there is none: this fixture only appends and scans.
type TableHeap[T any] struct {
	bpm           *storage.BufferPoolManager
	codec         hashindex.Codec[T]
	firstPageID   storage.PageID
	lastPageID    storage.PageID
	tuplesPerPage int
}

// NewTableHeap allocates the heap's first page and returns a heap ready to
// accept InsertTuple calls.
func NewTableHeap[T any](bpm *storage.BufferPoolManager, codec hashindex.Codec[T]) (*TableHeap[T], error) {
	tuplesPerPage := (storage.PageSize - pageHeaderSize) / codec.Size()
	if tuplesPerPage < 1 {
		return nil, fmt.Errorf("tuple of size %d does not fit a %d-byte page", codec.Size(), storage.PageSize)
	}

	pageID, frame, err := bpm.NewPage()
	if err != nil {
		return nil, fmt.Errorf("allocate first table page: %w", err)
	}
	initPage(frame)
	bpm.UnpinPage(pageID, true)

	return &TableHeap[T]{
		bpm:           bpm,
		codec:         codec,
		firstPageID:   pageID,
		lastPageID:    pageID,
		tuplesPerPage: tuplesPerPage,
	}, nil
}

func initPage(frame *storage.Frame) {
	binary.LittleEndian.PutUint32(frame.Data[countOffset:], 0)
	setPageNext(frame, storage.InvalidPageID)
}

func pageCount(frame *storage.Frame) int {
	return int(binary.LittleEndian.Uint32(frame.Data[countOffset:]))
}

func setPageCount(frame *storage.Frame, n int) {
	binary.LittleEndian.PutUint32(frame.Data[countOffset:], uint32(n))
}

func pageNext(frame *storage.Frame) storage.PageID {
	return storage.PageID(binary.LittleEndian.Uint32(frame.Data[nextPageIDOffset:]))
}

func setPageNext(frame *storage.Frame, id storage.PageID) {
	binary.LittleEndian.PutUint32(frame.Data[nextPageIDOffset:], uint32(id))
}

func (h *TableHeap[T]) slotOffset(slot int) int {
	return pageHeaderSize + slot*h.codec.Size()
}

// InsertTuple appends v to the tail page, allocating a new page first if the
// tail is full, and returns the RID it was written at.
func (h *TableHeap[T]) InsertTuple(v T) (hashindex.RID, error) {
	frame, err := h.bpm.FetchPage(h.lastPageID)
	if err != nil {
		return hashindex.RID{}, fmt.Errorf("fetch tail page: %w", err)
	}

	count := pageCount(frame)
	if count >= h.tuplesPerPage {
		h.bpm.UnpinPage(h.lastPageID, false)

		newPageID, newFrame, err := h.bpm.NewPage()
		if err != nil {
			return hashindex.RID{}, fmt.Errorf("allocate next table page: %w", err)
		}
		initPage(newFrame)
		h.bpm.UnpinPage(newPageID, true)

		tailFrame, err := h.bpm.FetchPage(h.lastPageID)
		if err != nil {
			return hashindex.RID{}, fmt.Errorf("re-fetch previous tail page: %w", err)
		}
		setPageNext(tailFrame, newPageID)
		h.bpm.UnpinPage(h.lastPageID, true)

		h.lastPageID = newPageID
		frame, err = h.bpm.FetchPage(newPageID)
		if err != nil {
			return hashindex.RID{}, fmt.Errorf("fetch new tail page: %w", err)
		}
		count = 0
	}

	off := h.slotOffset(count)
	h.codec.Encode(frame.Data[off:off+h.codec.Size()], v)
	setPageCount(frame, count+1)
	rid := hashindex.RID{PageID: int32(h.lastPageID), SlotID: uint32(count)}
	h.bpm.UnpinPage(h.lastPageID, true)

	return rid, nil
}

// Iterator walks every tuple in insertion order, pinning one page at a time.
// It takes no page latches.
type Iterator[T any] struct {
	heap   *TableHeap[T]
	pageID storage.PageID
	slot   int
}

// Iterator returns a fresh iterator positioned before the first tuple.
func (h *TableHeap[T]) Iterator() *Iterator[T] {
	return &Iterator[T]{heap: h, pageID: h.firstPageID}
}

// Next advances the iterator and reports whether a tuple was found.
func (it *Iterator[T]) Next() (T, hashindex.RID, bool, error) {
	var zero T
	h := it.heap

	for {
		frame, err := h.bpm.FetchPage(it.pageID)
		if err != nil {
			return zero, hashindex.RID{}, false, fmt.Errorf("fetch page during scan: %w", err)
		}

		count := pageCount(frame)
		if it.slot < count {
			off := h.slotOffset(it.slot)
			v := h.codec.Decode(frame.Data[off : off+h.codec.Size()])
			rid := hashindex.RID{PageID: int32(it.pageID), SlotID: uint32(it.slot)}
			it.slot++
			h.bpm.UnpinPage(it.pageID, false)
			return v, rid, true, nil
		}

		next := pageNext(frame)
		h.bpm.UnpinPage(it.pageID, false)
		if next == storage.InvalidPageID {
			return zero, hashindex.RID{}, false, nil
		}
		it.pageID = next
		it.slot = 0
	}
}
