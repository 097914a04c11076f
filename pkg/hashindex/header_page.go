package hashindex

import (
	"encoding/binary"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// Header page layout, all little-endian:
//
//	offset 0  : page_id     (int32)
//	offset 4  : lsn         (uint64)
//	offset 12 : size        (uint64)  target bucket count at construction time
//	offset 20 : next_ind    (uint32)  number of block page ids recorded so far
//	offset 24 : block_page_ids[]  (int32 each), up to headerMaxBlocks entries
const (
	headerOffPageID  = 0
	headerOffLSN     = 4
	headerOffSize    = 12
	headerOffNextInd = 20
	headerOffBlocks  = 24
)

// headerMaxBlocks is how many block page ids fit after the fixed header.
const headerMaxBlocks = (storage.PageSize - headerOffBlocks) / 4

// HeaderPage is an accessor over a pinned frame holding a hash table's
// header: its own page id, an LSN slot reserved for future WAL wiring, the
// bucket count it was built for, and the ordered list of block page ids
// that make up the directory.
type HeaderPage struct {
	frame *storage.Frame
}

// LoadHeaderPage wraps frame (which the caller must already hold pinned and
// appropriately latched) as a HeaderPage accessor.
func LoadHeaderPage(frame *storage.Frame) *HeaderPage {
	return &HeaderPage{frame: frame}
}

func (h *HeaderPage) GetPageId() storage.PageID {
	return storage.PageID(int32(binary.LittleEndian.Uint32(h.frame.Data[headerOffPageID:])))
}

func (h *HeaderPage) SetPageId(id storage.PageID) {
	binary.LittleEndian.PutUint32(h.frame.Data[headerOffPageID:], uint32(int32(id)))
}

func (h *HeaderPage) GetLSN() uint64 {
	return binary.LittleEndian.Uint64(h.frame.Data[headerOffLSN:])
}

func (h *HeaderPage) SetLSN(lsn uint64) {
	binary.LittleEndian.PutUint64(h.frame.Data[headerOffLSN:], lsn)
}

// GetSize returns the target bucket count this header was built for — not
// necessarily equal to NumBlocks while the directory is still being
// populated by the constructor.
func (h *HeaderPage) GetSize() uint64 {
	return binary.LittleEndian.Uint64(h.frame.Data[headerOffSize:])
}

func (h *HeaderPage) SetSize(size int) {
	binary.LittleEndian.PutUint64(h.frame.Data[headerOffSize:], uint64(size))
}

// NumBlocks is the number of block page ids actually recorded.
func (h *HeaderPage) NumBlocks() int {
	return int(binary.LittleEndian.Uint32(h.frame.Data[headerOffNextInd:]))
}

func (h *HeaderPage) setNumBlocks(n int) {
	binary.LittleEndian.PutUint32(h.frame.Data[headerOffNextInd:], uint32(n))
}

// AddBlockPageId appends a block page id to the directory. Panics if the
// directory is already at headerMaxBlocks. Neither the table constructor
// nor Resize checks the bucket count against this limit.
func (h *HeaderPage) AddBlockPageId(id storage.PageID) {
	n := h.NumBlocks()
	if n >= headerMaxBlocks {
		panic("hashindex: header page directory is full")
	}
	off := headerOffBlocks + n*4
	binary.LittleEndian.PutUint32(h.frame.Data[off:], uint32(int32(id)))
	h.setNumBlocks(n + 1)
}

// GetBlockPageId returns the ind'th block page id in the directory, or
// storage.InvalidPageID if ind is at or past next_ind.
func (h *HeaderPage) GetBlockPageId(ind int) storage.PageID {
	if ind < 0 || ind >= h.NumBlocks() {
		return storage.InvalidPageID
	}
	off := headerOffBlocks + ind*4
	return storage.PageID(int32(binary.LittleEndian.Uint32(h.frame.Data[off:])))
}
