package hashindex

import "github.com/mnohosten/laura-db/pkg/storage"

// Transaction is reserved for a future lock-manager/WAL integration. The
// table's public methods accept one (mirroring the original's signatures)
// but never dereference it today.
type Transaction struct{}

// pinnedHeader bundles a fetched header frame with its latch mode so every
// call site releases both the latch and the pin together, in the right
// order, regardless of which branch it exits through.
type pinnedHeader struct {
	bpm    *storage.BufferPoolManager
	pageID storage.PageID
	frame  *storage.Frame
	header *HeaderPage
	write  bool
}

func (p *pinnedHeader) release() {
	if p.write {
		p.frame.Latch.WUnlatch()
	} else {
		p.frame.Latch.RUnlatch()
	}
	p.bpm.UnpinPage(p.pageID, p.write)
}

// pinnedBlock is pinnedHeader's counterpart for block pages.
type pinnedBlock[K any, V any] struct {
	bpm    *storage.BufferPoolManager
	pageID storage.PageID
	frame  *storage.Frame
	view   *BlockPage[K, V]
	write  bool
}

func (p *pinnedBlock[K, V]) release(dirty bool) {
	if p.write {
		p.frame.Latch.WUnlatch()
	} else {
		p.frame.Latch.RUnlatch()
	}
	p.bpm.UnpinPage(p.pageID, dirty)
}
