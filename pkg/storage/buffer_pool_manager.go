package storage

import (
	"fmt"
	"sync"
)

// EvictionListener receives a best-effort notification every time the
// buffer pool victimizes a frame or writes a dirty page back to disk (from
// FlushPage, FlushAllPages, or an eviction). Flushing a clean page sends no
// notification. It must not block: the pool calls it while still holding its
// internal latch. Used to feed the admin websocket event stream; nil is
// the common case and is always safe.
type EvictionListener interface {
	OnVictim(old PageID, wasDirty bool)
	OnFlush(pageID PageID)
}

// BufferPoolManager mediates all access to a paged file: it maps page ids
// to fixed in-memory frames, enforces the pin/dirty invariants, and
// consults a ClockReplacer for victim selection when the free list runs
// dry. It is the only thing in this module that talks to a DiskManager.
type BufferPoolManager struct {
	mu       sync.Mutex
	frames   []Frame
	pageTbl  map[PageID]FrameID
	freeList []FrameID
	replacer *ClockReplacer
	disk     DiskManager
	listener EvictionListener
}

// NewBufferPoolManager creates a pool of poolSize frames backed by disk.
func NewBufferPoolManager(poolSize int, disk DiskManager) *BufferPoolManager {
	bpm := &BufferPoolManager{
		frames:   make([]Frame, poolSize),
		pageTbl:  make(map[PageID]FrameID, poolSize),
		freeList: make([]FrameID, poolSize),
		replacer: NewClockReplacer(poolSize),
		disk:     disk,
	}
	for i := range bpm.frames {
		bpm.frames[i].PageID = InvalidPageID
		bpm.freeList[i] = FrameID(i)
	}
	return bpm
}

// SetEvictionListener installs (or clears, with nil) the listener notified
// of victim/flush events. Not safe to call concurrently with other
// operations on this pool.
func (bpm *BufferPoolManager) SetEvictionListener(l EvictionListener) {
	bpm.listener = l
}

// victimFrame returns a frame to reuse: the free list first, the replacer
// otherwise. If the victim came from the replacer and held a dirty page,
// that page is flushed and removed from the page table before reuse.
// Caller must hold bpm.mu.
func (bpm *BufferPoolManager) victimFrame() (FrameID, bool) {
	if n := len(bpm.freeList); n > 0 {
		id := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		return id, true
	}

	frameID, ok := bpm.replacer.Victim()
	if !ok {
		return 0, false
	}

	frame := &bpm.frames[frameID]
	oldID := frame.PageID
	wasDirty := frame.Dirty
	if wasDirty {
		bpm.flushLocked(oldID)
	}
	delete(bpm.pageTbl, oldID)
	if bpm.listener != nil {
		bpm.listener.OnVictim(oldID, wasDirty)
	}
	return frameID, true
}

// FetchPage pins and returns the frame holding pageID, reading it from disk
// if it is not already resident. Returns an error only when the pool is
// saturated (every frame pinned) or the disk read fails.
func (bpm *BufferPoolManager) FetchPage(pageID PageID) (*Frame, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameID, ok := bpm.pageTbl[pageID]; ok {
		bpm.replacer.Pin(frameID)
		bpm.frames[frameID].PinCount++
		return &bpm.frames[frameID], nil
	}

	frameID, ok := bpm.victimFrame()
	if !ok {
		return nil, fmt.Errorf("buffer pool exhausted: no frame available to fetch page %s", pageID)
	}

	frame := &bpm.frames[frameID]
	frame.reset()
	frame.PageID = pageID
	frame.PinCount = 1
	frame.Dirty = false
	if err := bpm.disk.ReadPage(pageID, &frame.Data); err != nil {
		bpm.freeList = append(bpm.freeList, frameID)
		frame.reset()
		return nil, fmt.Errorf("read page %s: %w", pageID, err)
	}
	bpm.pageTbl[pageID] = frameID

	return frame, nil
}

// NewPage allocates a fresh page id, pins it in a frame, and returns it.
// The frame starts dirty: its contents are fresh and have never been
// persisted.
func (bpm *BufferPoolManager) NewPage() (PageID, *Frame, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.victimFrame()
	if !ok {
		return InvalidPageID, nil, fmt.Errorf("buffer pool exhausted: no frame available for new page")
	}

	pageID, err := bpm.disk.AllocatePage()
	if err != nil {
		bpm.freeList = append(bpm.freeList, frameID)
		return InvalidPageID, nil, fmt.Errorf("allocate page: %w", err)
	}

	frame := &bpm.frames[frameID]
	frame.reset()
	frame.PageID = pageID
	frame.PinCount = 1
	frame.Dirty = true
	bpm.pageTbl[pageID] = frameID

	return pageID, frame, nil
}

// UnpinPage decrements pageID's pin count and ORs in isDirty. Once the pin
// count reaches zero the frame becomes eligible for eviction. Returns false
// if pageID is not resident or was already fully unpinned.
func (bpm *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTbl[pageID]
	if !ok {
		return false
	}
	frame := &bpm.frames[frameID]
	if frame.PinCount <= 0 {
		return false
	}
	frame.PinCount--
	frame.Dirty = frame.Dirty || isDirty
	if frame.PinCount == 0 {
		bpm.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage writes pageID to disk if dirty and clears its dirty flag.
// Returns false if pageID is not resident. Does not change pin count.
func (bpm *BufferPoolManager) FlushPage(pageID PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return bpm.flushLocked(pageID)
}

// flushLocked is FlushPage's body; caller must hold bpm.mu.
func (bpm *BufferPoolManager) flushLocked(pageID PageID) bool {
	frameID, ok := bpm.pageTbl[pageID]
	if !ok {
		return false
	}
	frame := &bpm.frames[frameID]
	if frame.Dirty {
		if err := bpm.disk.WritePage(pageID, &frame.Data); err == nil {
			frame.Dirty = false
			if bpm.listener != nil {
				bpm.listener.OnFlush(pageID)
			}
		}
	}
	return true
}

// FlushAllPages writes every resident dirty page to disk.
func (bpm *BufferPoolManager) FlushAllPages() {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	for pageID := range bpm.pageTbl {
		bpm.flushLocked(pageID)
	}
}

// DeletePage removes pageID from the pool and deallocates it on disk.
// Returns false if the page is pinned; true otherwise (including when the
// page was never resident — deallocation of a never-fetched id still
// succeeds, matching the disk manager's monotonic allocation contract).
func (bpm *BufferPoolManager) DeletePage(pageID PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTbl[pageID]
	if ok {
		frame := &bpm.frames[frameID]
		if frame.PinCount > 0 {
			return false
		}
		bpm.replacer.Pin(frameID)
		frame.reset()
		delete(bpm.pageTbl, pageID)
		bpm.freeList = append(bpm.freeList, frameID)
	}

	_ = bpm.disk.DeallocatePage(pageID)
	return true
}

// IsResident reports whether pageID currently occupies a frame, without
// affecting its pin count. It lets an instrumentation layer distinguish a
// FetchPage hit from a fault-in before calling it; no package in this
// module calls it.
func (bpm *BufferPoolManager) IsResident(pageID PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	_, ok := bpm.pageTbl[pageID]
	return ok
}

// Stats reports counters for the admin/metrics surface.
func (bpm *BufferPoolManager) Stats() map[string]interface{} {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return map[string]interface{}{
		"capacity":      len(bpm.frames),
		"resident":      len(bpm.pageTbl),
		"free_frames":   len(bpm.freeList),
		"replacer_size": bpm.replacer.Size(),
	}
}
