package tableheap

import (
	"path/filepath"
	"testing"

	"github.com/mnohosten/laura-db/pkg/hashindex"
	"github.com/mnohosten/laura-db/pkg/storage"
)

func newTestHeap(t *testing.T, poolSize int) *TableHeap[int64] {
	t.Helper()
	dir := t.TempDir()
	dm, err := storage.NewFileDiskManager(filepath.Join(dir, "heap.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })

	bpm := storage.NewBufferPoolManager(poolSize, dm)
	heap, err := NewTableHeap[int64](bpm, hashindex.Int64Codec{})
	if err != nil {
		t.Fatalf("NewTableHeap: %v", err)
	}
	return heap
}

func TestTableHeap_InsertThenScanPreservesOrder(t *testing.T) {
	heap := newTestHeap(t, 8)

	var want []int64
	for i := int64(0); i < 50; i++ {
		if _, err := heap.InsertTuple(i); err != nil {
			t.Fatalf("InsertTuple(%d): %v", i, err)
		}
		want = append(want, i)
	}

	it := heap.Iterator()
	var got []int64
	for {
		v, _, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}

	if len(got) != len(want) {
		t.Fatalf("scanned %d tuples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tuple %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTableHeap_SpansMultiplePages(t *testing.T) {
	heap := newTestHeap(t, 4)

	tuplesPerPage := heap.tuplesPerPage
	n := tuplesPerPage*3 + 1

	var rids []hashindex.RID
	for i := int64(0); i < int64(n); i++ {
		rid, err := heap.InsertTuple(i)
		if err != nil {
			t.Fatalf("InsertTuple(%d): %v", i, err)
		}
		rids = append(rids, rid)
	}

	distinctPages := map[int32]struct{}{}
	for _, rid := range rids {
		distinctPages[rid.PageID] = struct{}{}
	}
	if len(distinctPages) < 2 {
		t.Fatalf("expected tuples to span multiple pages, got %d distinct page ids", len(distinctPages))
	}
}

func TestTableHeap_EmptyHeapScanFindsNothing(t *testing.T) {
	heap := newTestHeap(t, 4)

	it := heap.Iterator()
	_, _, ok, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Fatalf("expected no tuples in a freshly created heap")
	}
}
