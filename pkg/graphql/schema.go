package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// HashTableStats is the narrow read-only shape a hash index exposes to the
// stats API. *hashindex.LinearProbeHashTable[K, V] satisfies it for any
// K, V without the graphql package needing to know either type parameter.
type HashTableStats interface {
	Capacity() int
	NumBuckets() (int, error)
}

// Schema builds the read-only stats schema: bufferPool{capacity, size,
// hitRate, evictions} and hashTable{capacity, numBuckets}. There are no
// mutations — every state change to the underlying structures happens
// through the Go API, not over this query surface.
func Schema(bpm *storage.BufferPoolManager, ht HashTableStats, mc *metrics.MetricsCollector) (graphql.Schema, error) {
	bufferPoolType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "BufferPool",
		Description: "Live shape and hit rate of the buffer pool",
		Fields: graphql.Fields{
			"capacity": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Total number of frames in the pool",
			},
			"size": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Number of frames currently holding a resident page",
			},
			"hitRate": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Float),
				Description: "Percentage of FetchPage calls recorded via MetricsCollector.RecordFetch that were served without a disk read (0 when none are recorded)",
			},
			"evictions": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Total frames victimized by the replacer since startup",
			},
		},
	})

	hashTableType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "HashTable",
		Description: "Current directory shape of the linear-probe hash index",
		Fields: graphql.Fields{
			"capacity": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Slots per block page, fixed by the key/value codec widths",
			},
			"numBuckets": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Number of block pages in the current directory",
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"bufferPool": &graphql.Field{
				Type: bufferPoolType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					stats := bpm.Stats()
					snap := mc.GetMetrics()
					pages := snap["pages"].(map[string]interface{})
					evictions := snap["evictions"].(map[string]interface{})
					return map[string]interface{}{
						"capacity":  stats["capacity"],
						"size":      stats["resident"],
						"hitRate":   pages["hit_rate"],
						"evictions": evictions["total"],
					}, nil
				},
			},
			"hashTable": &graphql.Field{
				Type: hashTableType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					numBuckets, err := ht.NumBuckets()
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"capacity":   ht.Capacity(),
						"numBuckets": numBuckets,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
