package storage

import "sync"

// FrameID indexes a slot in the buffer pool's fixed frame array.
type FrameID int

// clockItem tracks one frame's membership in the replacer.
type clockItem struct {
	inReplacer bool
	ref        bool
}

// ClockReplacer is a second-chance (clock) victim-selection policy over a
// fixed number of frames. A frame is either pinned (not in the replacer) or
// unpinned and resident (in the replacer, eligible for eviction).
//
// Grounded on the bustub clock_replacer.cpp victim/pin/unpin algorithm:
// Victim sweeps clockwise from the hand, clearing reference bits on its
// first pass over a frame and evicting the first frame it revisits with
// the bit already clear.
type ClockReplacer struct {
	mu    sync.Mutex
	items []clockItem
	hand  int
	size  int
}

// NewClockReplacer creates a replacer over numFrames frames, all initially
// absent (pinned).
func NewClockReplacer(numFrames int) *ClockReplacer {
	return &ClockReplacer{
		items: make([]clockItem, numFrames),
	}
}

// Victim selects and removes an unpinned frame from the replacer, in at
// most 2*N hand steps. Returns false if the replacer is empty.
func (c *ClockReplacer) Victim() (FrameID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.size > 0 {
		if c.hand == len(c.items) {
			c.hand = 0
		}

		item := &c.items[c.hand]
		if !item.inReplacer {
			c.hand++
			continue
		}
		if item.ref {
			item.ref = false
			c.hand++
			continue
		}

		item.inReplacer = false
		c.size--
		victim := FrameID(c.hand)
		c.hand++
		return victim, true
	}

	return 0, false
}

// Pin removes a frame from the replacer (idempotent).
func (c *ClockReplacer) Pin(frame FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items[frame].inReplacer {
		c.items[frame].inReplacer = false
		c.size--
	}
}

// Unpin inserts a frame into the replacer with its reference bit set
// (idempotent).
func (c *ClockReplacer) Unpin(frame FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.items[frame].inReplacer {
		c.items[frame].inReplacer = true
		c.items[frame].ref = true
		c.size++
	}
}

// Size returns the number of frames currently eligible for eviction.
func (c *ClockReplacer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
