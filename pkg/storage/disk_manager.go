package storage

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DiskManager is the narrow external collaborator the buffer pool consumes.
// A production deployment of this substrate owns its own disk manager
// (and log/transaction managers); this interface is the only surface the
// buffer pool is allowed to touch.
type DiskManager interface {
	AllocatePage() (PageID, error)
	DeallocatePage(pageID PageID) error
	ReadPage(pageID PageID, dst *[PageSize]byte) error
	WritePage(pageID PageID, src *[PageSize]byte) error
}

// FileDiskManager is a real, file-backed DiskManager. Page id p lives at
// byte offset p*PageSize in the backing file.
type FileDiskManager struct {
	mu          sync.Mutex
	file        *os.File
	nextPageID  PageID
	freedPages  map[PageID]struct{} // bookkeeping only: ids here are never reissued
	totalReads  int64
	totalWrites int64
	checksums   map[PageID][checksumSize]byte
}

var _ DiskManager = (*FileDiskManager)(nil)

// NewFileDiskManager opens (creating if necessary) the paged file at path.
func NewFileDiskManager(path string) (*FileDiskManager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	return &FileDiskManager{
		file:       f,
		nextPageID: PageID(info.Size() / PageSize),
		freedPages: make(map[PageID]struct{}),
		checksums:  make(map[PageID][checksumSize]byte),
	}, nil
}

// AllocatePage hands out the next page id. Page ids are monotonic for the
// life of the session: a deallocated id is never reissued, it only frees
// disk space bookkeeping.
func (dm *FileDiskManager) AllocatePage() (PageID, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	id := dm.nextPageID
	dm.nextPageID++
	return id, nil
}

// DeallocatePage marks pageID's disk space reclaimable. It does not shrink
// the file or renumber any other page.
func (dm *FileDiskManager) DeallocatePage(pageID PageID) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if pageID >= dm.nextPageID {
		return fmt.Errorf("invalid page id %s: never allocated", pageID)
	}
	dm.freedPages[pageID] = struct{}{}
	delete(dm.checksums, pageID)
	return nil
}

// ReadPage reads pageID's bytes into dst. Reading a page beyond the current
// end of file (a page that was NewPage'd but never flushed) yields zeroes.
func (dm *FileDiskManager) ReadPage(pageID PageID, dst *[PageSize]byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(pageID) * PageSize
	n, err := dm.file.ReadAt(dst[:], offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read page %s: %w", pageID, err)
	}
	if n < PageSize {
		for i := n; i < PageSize; i++ {
			dst[i] = 0
		}
	}
	if sum, ok := dm.checksums[pageID]; ok {
		if got := blake2bChecksum(dst[:]); got != sum {
			return fmt.Errorf("page %s failed checksum verification", pageID)
		}
	}
	dm.totalReads++
	return nil
}

// WritePage writes src to pageID's offset and records its checksum.
func (dm *FileDiskManager) WritePage(pageID PageID, src *[PageSize]byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(src[:], offset); err != nil {
		return fmt.Errorf("write page %s: %w", pageID, err)
	}
	dm.checksums[pageID] = blake2bChecksum(src[:])
	dm.totalWrites++
	return nil
}

// Sync flushes the backing file to stable storage.
func (dm *FileDiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Sync()
}

// Close syncs and closes the backing file.
func (dm *FileDiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.file.Sync(); err != nil {
		return err
	}
	return dm.file.Close()
}

// Stats reports counters useful for the admin/metrics surface.
func (dm *FileDiskManager) Stats() map[string]interface{} {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return map[string]interface{}{
		"next_page_id": int32(dm.nextPageID),
		"freed_pages":  len(dm.freedPages),
		"total_reads":  dm.totalReads,
		"total_writes": dm.totalWrites,
	}
}
