package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDiskManager(t *testing.T) *FileDiskManager {
	t.Helper()
	dir := t.TempDir()
	dm, err := NewFileDiskManager(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return dm
}

// Scenario 1: fault-in round trip.
func TestBufferPoolManager_FaultInRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(10, dm)

	p0, frame, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	copy(frame.Data[:], "hello")
	if !bpm.UnpinPage(p0, true) {
		t.Fatalf("UnpinPage(p0) = false")
	}

	// Exhaust the pool so p0 must be evicted and written back.
	for i := 0; i < 10; i++ {
		_, f, err := bpm.NewPage()
		if err != nil {
			t.Fatalf("NewPage[%d]: %v", i, err)
		}
		copy(f.Data[:], "junkjunk")
		if !bpm.UnpinPage(f.PageID, true) {
			t.Fatalf("UnpinPage[%d] = false", i)
		}
	}

	got, err := bpm.FetchPage(p0)
	if err != nil {
		t.Fatalf("FetchPage(p0): %v", err)
	}
	defer bpm.UnpinPage(p0, false)
	if string(got.Data[:5]) != "hello" {
		t.Fatalf("FetchPage(p0).Data[:5] = %q, want %q", got.Data[:5], "hello")
	}
}

// Scenario 2: unpin on a non-resident page id.
func TestBufferPoolManager_UnpinNonResident(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(10, dm)

	if bpm.UnpinPage(9999, true) {
		t.Fatal("UnpinPage(9999) = true, want false")
	}
}

// Scenario 3: delete a pinned page, then delete after unpinning.
func TestBufferPoolManager_DeletePinned(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(10, dm)

	p, _, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}

	if bpm.DeletePage(p) {
		t.Fatal("DeletePage(pinned) = true, want false")
	}
	if !bpm.UnpinPage(p, false) {
		t.Fatal("UnpinPage = false")
	}
	if !bpm.DeletePage(p) {
		t.Fatal("DeletePage(unpinned) = false, want true")
	}
}

// Pool of size 1, two distinct page ids fetched alternately: every fetch of
// the non-resident id must evict the current one (P1: never evict pinned).
func TestBufferPoolManager_PoolSizeOneAlternating(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(1, dm)

	a, fa, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage a: %v", err)
	}
	copy(fa.Data[:], "AAAA")
	if !bpm.UnpinPage(a, true) {
		t.Fatal("unpin a failed")
	}

	b, fb, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage b: %v", err)
	}
	copy(fb.Data[:], "BBBB")
	if !bpm.UnpinPage(b, true) {
		t.Fatal("unpin b failed")
	}

	got, err := bpm.FetchPage(a)
	if err != nil {
		t.Fatalf("FetchPage a: %v", err)
	}
	if string(got.Data[:4]) != "AAAA" {
		t.Fatalf("a.Data = %q", got.Data[:4])
	}
	bpm.UnpinPage(a, false)

	got, err = bpm.FetchPage(b)
	if err != nil {
		t.Fatalf("FetchPage b: %v", err)
	}
	if string(got.Data[:4]) != "BBBB" {
		t.Fatalf("b.Data = %q", got.Data[:4])
	}
	bpm.UnpinPage(b, false)
}

// Pool exhaustion: every frame pinned, Fetch/New must fail rather than
// evict a pinned frame (P1).
func TestBufferPoolManager_ExhaustionRefusesToEvictPinned(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(2, dm)

	p1, _, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage 1: %v", err)
	}
	p2, _, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage 2: %v", err)
	}
	_ = p1
	_ = p2

	if _, _, err := bpm.NewPage(); err == nil {
		t.Fatal("NewPage succeeded with every frame pinned, want error")
	}
}

func TestBufferPoolManager_FlushThenFetchByteIdentical(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(4, dm)

	p, frame, err := bpm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	copy(frame.Data[:], "payload-at-flush-time")
	if !bpm.FlushPage(p) {
		t.Fatal("FlushPage = false")
	}
	bpm.UnpinPage(p, false)

	// Force eviction of p by filling the rest of the pool, then refetch.
	for i := 0; i < 4; i++ {
		_, f, err := bpm.NewPage()
		if err != nil {
			t.Fatalf("NewPage filler[%d]: %v", i, err)
		}
		bpm.UnpinPage(f.PageID, false)
	}

	refetched, err := bpm.FetchPage(p)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	defer bpm.UnpinPage(p, false)
	if string(refetched.Data[:21]) != "payload-at-flush-time" {
		t.Fatalf("refetched.Data[:21] = %q", refetched.Data[:21])
	}
}

func TestBufferPoolManager_FlushAllPages(t *testing.T) {
	dm := newTestDiskManager(t)
	bpm := NewBufferPoolManager(4, dm)

	ids := make([]PageID, 0, 3)
	for i := 0; i < 3; i++ {
		id, f, err := bpm.NewPage()
		if err != nil {
			t.Fatalf("NewPage: %v", err)
		}
		copy(f.Data[:], "x")
		ids = append(ids, id)
	}

	bpm.FlushAllPages()

	for _, id := range ids {
		bpm.UnpinPage(id, false)
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
