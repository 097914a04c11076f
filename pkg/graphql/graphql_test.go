package graphql

import (
	"path/filepath"
	"testing"

	graphqlgo "github.com/graphql-go/graphql"
	"github.com/mnohosten/laura-db/pkg/hashindex"
	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

func newTestEnv(t *testing.T) (*storage.BufferPoolManager, *hashindex.LinearProbeHashTable[int64, hashindex.RID], *metrics.MetricsCollector) {
	t.Helper()
	dir := t.TempDir()
	dm, err := storage.NewFileDiskManager(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewFileDiskManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })

	bpm := storage.NewBufferPoolManager(16, dm)
	ht, err := hashindex.NewLinearProbeHashTable[int64, hashindex.RID](
		bpm, 2, hashindex.Int64Codec{}, hashindex.RIDCodec{},
		hashindex.FNVHash[int64](hashindex.Int64Codec{}), hashindex.OrderedComparator[int64](),
	)
	if err != nil {
		t.Fatalf("NewLinearProbeHashTable: %v", err)
	}
	return bpm, ht, metrics.NewMetricsCollector()
}

func TestSchema_BufferPoolQuery(t *testing.T) {
	bpm, ht, mc := newTestEnv(t)

	schema, err := Schema(bpm, ht, mc)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	result := graphqlgo.Do(graphqlgo.Params{
		Schema:        schema,
		RequestString: `{ bufferPool { capacity size hitRate evictions } }`,
	})
	if len(result.Errors) > 0 {
		t.Fatalf("query errors: %v", result.Errors)
	}

	data := result.Data.(map[string]interface{})
	bufferPool := data["bufferPool"].(map[string]interface{})
	if int(bufferPool["capacity"].(int)) != 16 {
		t.Fatalf("capacity = %v, want 16", bufferPool["capacity"])
	}
}

func TestSchema_HashTableQuery(t *testing.T) {
	bpm, ht, mc := newTestEnv(t)

	schema, err := Schema(bpm, ht, mc)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	result := graphqlgo.Do(graphqlgo.Params{
		Schema:        schema,
		RequestString: `{ hashTable { capacity numBuckets } }`,
	})
	if len(result.Errors) > 0 {
		t.Fatalf("query errors: %v", result.Errors)
	}

	data := result.Data.(map[string]interface{})
	ht2 := data["hashTable"].(map[string]interface{})
	if int(ht2["numBuckets"].(int)) != 2 {
		t.Fatalf("numBuckets = %v, want 2", ht2["numBuckets"])
	}
}
